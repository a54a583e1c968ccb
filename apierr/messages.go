package apierr

const (
	msgNetwork        = "Error de conexión. Verifique su conexión a internet."
	msgTimeout        = "La solicitud tardó demasiado. Intente nuevamente."
	msgBadRequest     = "Los datos enviados no son válidos."
	msgUnauthorized   = "Su sesión ha expirado. Por favor inicie sesión nuevamente."
	msgForbidden      = "No tiene permisos para realizar esta acción."
	msgNotFound       = "El recurso solicitado no fue encontrado."
	msgConflict       = "La operación entra en conflicto con el estado actual del recurso."
	msgUnprocessable  = "Los datos enviados no pudieron ser procesados."
	msgTooManyRequest = "Demasiadas solicitudes. Espere un momento e intente nuevamente."
	msgInternal       = "Error interno del servidor. Intente más tarde."
	msgBadGateway     = "El servidor no está disponible temporalmente."
	msgUnavailable    = "Servicio no disponible. Intente más tarde."
	msgGatewayTimeout = "El servidor tardó demasiado en responder."
	msgServerGeneric  = "Error del servidor. Intente más tarde."
	msgClientGeneric  = "Error en la solicitud."
	msgUnknown        = "Ha ocurrido un error inesperado."
)

type statusRule struct {
	kind        Kind
	severity    Severity
	userMessage string
	retryable   bool
}

var statusTable = map[int]statusRule{
	400: {KindValidation, SeverityLow, msgBadRequest, false},
	401: {KindAuthentication, SeverityHigh, msgUnauthorized, false},
	403: {KindAuthorization, SeverityMedium, msgForbidden, false},
	404: {KindClient, SeverityLow, msgNotFound, false},
	408: {KindTimeout, SeverityMedium, msgTimeout, true},
	409: {KindValidation, SeverityLow, msgConflict, false},
	422: {KindValidation, SeverityLow, msgUnprocessable, false},
	429: {KindClient, SeverityMedium, msgTooManyRequest, true},
	500: {KindServer, SeverityHigh, msgInternal, true},
	502: {KindServer, SeverityHigh, msgBadGateway, true},
	503: {KindServer, SeverityHigh, msgUnavailable, true},
	504: {KindServer, SeverityHigh, msgGatewayTimeout, true},
}

func lookupStatus(status int) (statusRule, bool) {
	if rule, ok := statusTable[status]; ok {
		return rule, true
	}
	switch {
	case status >= 500 && status <= 599:
		return statusRule{KindServer, SeverityHigh, msgServerGeneric, true}, true
	case status >= 400 && status <= 499:
		return statusRule{KindClient, SeverityMedium, msgClientGeneric, false}, true
	}
	return statusRule{}, false
}
