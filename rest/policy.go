package rest

// Outcome applies the status policy of method to resp.
//
//	GET    200 -> true
//	PUT    201 -> true, 200/204 -> false
//	DELETE 200 -> true, 202/204 -> false
//	POST   200/201/204 -> true
//
// Any other code yields a *StatusError. Verbs without a policy accept every
// 2xx code.
func Outcome(method Method, resp *Response) (bool, error) {
	code := resp.StatusCode

	switch method {
	case GET:
		if code == StatusOK {
			return true, nil
		}
	case PUT:
		switch code {
		case StatusCreated:
			return true, nil
		case StatusOK, StatusNoContent:
			return false, nil
		}
	case DELETE:
		switch code {
		case StatusOK:
			return true, nil
		case StatusAccepted, StatusNoContent:
			return false, nil
		}
	case POST:
		switch code {
		case StatusOK, StatusCreated, StatusNoContent:
			return true, nil
		}
	default:
		if IsSuccess(code) {
			return true, nil
		}
	}

	return false, &StatusError{StatusCode: code, StatusMessage: resp.StatusMessage}
}
