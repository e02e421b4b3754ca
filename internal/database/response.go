package database

// Response is the uniform result of every façade and coordinator operation.
// Backend errors never propagate past an operation boundary; they are folded
// into Status and Message. Callers branch on Status only — Status false
// guarantees Data is nil.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func okResponse(message string, data any) Response {
	return Response{Status: true, Message: message, Data: data}
}

func failResponse(message string) Response {
	return Response{Status: false, Message: message}
}
