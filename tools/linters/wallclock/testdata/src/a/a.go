package a

import (
	"time"

	clock "time"
)

func bad() {
	_ = time.Now() // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}

func good() {
	_ = time.Now().UTC()
}

func renamedImport() {
	_ = clock.Now() // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}

func chainingGood() {
	_ = time.Now().UTC().Format(time.RFC3339)
}

func nolintGeneral() {
	//nolint
	_ = time.Now()
}

func nolintSpecific() {
	_ = time.Now() //nolint:errcheck,wallclock
}

func nolintOtherLinter() {
	_ = time.Now() //nolint:otherlinter // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}

type fakeClock struct{}

func (fakeClock) Now() time.Time { return time.Time{} }

func methodNamedNow() {
	_ = fakeClock{}.Now()
}
