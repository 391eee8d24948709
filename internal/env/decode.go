package env

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

// isGroup reports whether a struct field holds more config rather than a value.
func isGroup(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t != timeType
}

func decodeStruct(val reflect.Value) error {
	typ := val.Type()

	for i := range val.NumField() {
		field, sf := val.Field(i), typ.Field(i)
		if !field.CanSet() {
			continue
		}
		if isGroup(field.Type()) {
			if err := decodeStruct(field); err != nil {
				return err
			}
			continue
		}

		key := sf.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := os.LookupEnv(key)
		if !ok {
			if raw, ok = sf.Tag.Lookup("default"); !ok {
				continue
			}
		}

		if err := decodeValue(field, raw); err != nil {
			return ErrInvalidValue{Field: sf.Name, EnvVar: key, Value: raw, Err: err}
		}
	}
	return nil
}

func decodeValue(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return ErrUnsupportedType{Kind: "[]" + field.Type().Elem().Kind().String()}
		}
		field.Set(reflect.ValueOf(splitList(raw)).Convert(field.Type()))
	default:
		return ErrUnsupportedType{Kind: field.Kind().String()}
	}
	return nil
}

func splitList(raw string) []string {
	var items []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
