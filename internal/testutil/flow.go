package testutil

// StaticRunToken generates the same run token every time.
//
// This enables deterministic refresh runs and golden snapshot comparison:
// the same scenario with the same StaticRunToken produces byte-identical
// results.
//
// Unlike engine.FixedGenerator, which hands out tokens from a finite list,
// this generator never exhausts. Useful when every refresh in a test
// should share one token.
//
// Thread-safety: StaticRunToken is stateless and safe for concurrent use.
type StaticRunToken struct {
	token string
}

// NewStaticRunToken creates a generator pinned to one token.
//
// The token is typically set in the scenario YAML:
//
//	run_id: "test-run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewStaticRunToken(token string) *StaticRunToken {
	if token == "" {
		token = "test-run-default"
	}
	return &StaticRunToken{token: token}
}

// Generate returns the fixed run token.
//
// Implements engine.RunTokenGenerator.
func (g *StaticRunToken) Generate() string {
	return g.token
}
