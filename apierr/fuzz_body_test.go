package apierr

import "testing"

// FuzzParseBody feeds arbitrary bytes to the body parser and the classifier.
// Goal: no panics and always a declared kind.
func FuzzParseBody(f *testing.F) {
	f.Add([]byte(`{"errors": {"email": ["x"]}}`))
	f.Add([]byte(`{"message": "x"}`))
	f.Add([]byte(`"text"`))
	f.Add([]byte(`{"a": {"b": {"c": ["d"]}}}`))
	f.Add([]byte(`{`))
	f.Add([]byte(``))
	f.Add([]byte(`null`))

	c := NewClassifier(DefaultGate())

	f.Fuzz(func(t *testing.T, raw []byte) {
		body := ParseBody(raw)
		if body.Form < BodyEmpty || body.Form > BodyUnknown {
			t.Fatalf("unexpected form %d", body.Form)
		}
		_, _ = body.ValidationMessage()

		d := c.Classify(Exchange{StatusCode: 400, Body: raw})
		if d.Kind != KindValidation {
			t.Fatalf("400 must stay VALIDATION, got %s", d.Kind)
		}
		if d.UserMessage == "" {
			t.Fatal("user message must never be empty")
		}
	})
}
