package response

// ErrorBody 所有失败响应的统一结构：{"error": "...", "details": "..."}
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Message struct {
	Message string `json:"message"`
}

// Error customMsg 为空时用状态码默认文案
func Error(code int, customMsg string) ErrorBody {
	if customMsg == "" {
		customMsg = Msg(code)
	}
	return ErrorBody{Error: customMsg}
}

func ErrorWithDetails(msg, details string) ErrorBody {
	return ErrorBody{Error: msg, Details: details}
}

func OK(msg string) Message { return Message{Message: msg} }
