package apierr

import "testing"

func TestParseBodyShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		form BodyForm
		msg  string
		ok   bool
	}{
		{name: "empty", raw: "  ", form: BodyEmpty},
		{name: "bare string", raw: `"Credenciales inválidas"`, form: BodyText, msg: "Credenciales inválidas", ok: true},
		{name: "message", raw: `{"message": "Sede no encontrada"}`, form: BodyMessage, msg: "Sede no encontrada", ok: true},
		{name: "error string", raw: `{"error": "Token inválido"}`, form: BodyError, msg: "Token inválido", ok: true},
		{name: "error object", raw: `{"error": {"message": "Token expirado", "code": 7}}`, form: BodyError, msg: "Token expirado", ok: true},
		{name: "detail", raw: `{"detail": "No autorizado"}`, form: BodyDetail, msg: "No autorizado", ok: true},
		{name: "errors string", raw: `{"errors": "Datos inválidos"}`, form: BodyErrorsText, msg: "Datos inválidos", ok: true},
		{name: "errors list", raw: `{"errors": ["uno", "dos"]}`, form: BodyErrorsText, msg: "uno, dos", ok: true},
		{
			name: "errors map",
			raw:  `{"message": "Validación fallida", "errors": {"nit": ["Requerido"], "razon_social": ["Muy larga", "Caracteres inválidos"]}}`,
			form: BodyFieldErrors,
			msg:  "nit: Requerido; razon_social: Muy larga, Caracteres inválidos",
			ok:   true,
		},
		{
			name: "top level field map keeps document order",
			raw:  `{"zeta": ["z"], "alpha": "a"}`,
			form: BodyFieldErrors,
			msg:  "zeta: z; alpha: a",
			ok:   true,
		},
		{
			name: "non field errors rendered bare",
			raw:  `{"non_field_errors": ["Credenciales inválidas"]}`,
			form: BodyFieldErrors,
			msg:  "Credenciales inválidas",
			ok:   true,
		},
		{
			name: "nested serializer errors flattened",
			raw:  `{"sede": {"ciudad": ["Requerida"]}}`,
			form: BodyFieldErrors,
			msg:  "sede.ciudad: Requerida",
			ok:   true,
		},
		{name: "numbers are unknown", raw: `{"status": 500}`, form: BodyUnknown},
		{name: "empty object", raw: `{}`, form: BodyUnknown},
		{name: "array", raw: `["x"]`, form: BodyUnknown},
		{name: "html", raw: `<html></html>`, form: BodyUnknown},
		{name: "truncated", raw: `{"message": "x"`, form: BodyUnknown},
		{name: "trailing garbage", raw: `{"message": "x"} y`, form: BodyUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := ParseBody([]byte(tc.raw))
			if body.Form != tc.form {
				t.Fatalf("form = %s, want %s", body.Form, tc.form)
			}
			msg, ok := body.ValidationMessage()
			if ok != tc.ok || msg != tc.msg {
				t.Fatalf("ValidationMessage = (%q, %v), want (%q, %v)", msg, ok, tc.msg, tc.ok)
			}
		})
	}
}

func TestParseBodyCapturesCode(t *testing.T) {
	body := ParseBody([]byte(`{"code": "token_not_valid", "detail": "El token no es válido"}`))
	if body.Code != "token_not_valid" {
		t.Fatalf("expected code to be captured, got %q", body.Code)
	}
	if body.Form != BodyDetail {
		t.Fatalf("expected detail form, got %s", body.Form)
	}
}
