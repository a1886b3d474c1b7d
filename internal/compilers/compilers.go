package compilers

import "os"

// Set names the test-runner executable for every compiler variant under
// comparison. Each entry is a binary name resolved through PATH or an
// absolute path.
type Set struct {
	Elm                 string `toml:"elm"`
	LamderaStableNoWire string `toml:"lamdera_stable_no_wire"`
	LamderaStable       string `toml:"lamdera_stable"`
	LamderaNextNoWire   string `toml:"lamdera_next_no_wire"`
	LamderaNext         string `toml:"lamdera_next"`

	// ElmTestRs optionally points at a local elm-test-rs binary; when empty
	// the runner falls back to npx.
	ElmTestRs string `toml:"elm_test_rs"`
}

// Default returns the fixed fallback aliases.
func Default() Set {
	return Set{
		Elm:                 "elm",
		LamderaStableNoWire: "lamdera-stable-no-wire",
		LamderaStable:       "lamdera-stable",
		LamderaNextNoWire:   "lamdera-next-no-wire",
		LamderaNext:         "lamdera-next",
	}
}

// ApplyEnv overrides each variant independently from the environment.
func (s *Set) ApplyEnv() {
	s.Elm = getenvDefault("ELM", s.Elm)
	s.LamderaStableNoWire = getenvDefault("LAMDERA_STABLE_NO_WIRE", s.LamderaStableNoWire)
	s.LamderaStable = getenvDefault("LAMDERA_STABLE", s.LamderaStable)
	s.LamderaNextNoWire = getenvDefault("LAMDERA_NEXT_NO_WIRE", s.LamderaNextNoWire)
	s.LamderaNext = getenvDefault("LAMDERA_NEXT", s.LamderaNext)
	s.ElmTestRs = getenvDefault("ELM_TEST_RS_PATH", s.ElmTestRs)
}

func getenvDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
