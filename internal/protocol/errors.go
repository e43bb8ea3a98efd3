package protocol

import "fmt"

// ServerError is an internal operation failure. It is never transmitted as
// such — the dispatcher converts it into a Return Error envelope destined
// for the originator.
type ServerError struct {
	Kind string // InvalidToken | AlreadyJoinedOrLeft | NameTaken | Custom
	Name string // set for NameTaken
	Info string // set for Custom
}

func (e *ServerError) Error() string {
	switch e.Kind {
	case "NameTaken":
		return fmt.Sprintf("name %q is already taken", e.Name)
	case "Custom":
		return e.Info
	default:
		return e.Kind
	}
}

func (e *ServerError) ToBody() *Error {
	switch e.Kind {
	case "InvalidToken":
		return &Error{Kind: "InvalidToken", Info: "the token you gave is not valid", Details: "{}"}
	case "AlreadyJoinedOrLeft":
		return &Error{Kind: "AlreadyJoinedOrLeft", Info: "the token holder is already logged in, or never existed", Details: "{}"}
	case "NameTaken":
		return &Error{Kind: "NameTaken", Info: fmt.Sprintf("username %q is already taken", e.Name),
			Details: fmt.Sprintf(`{"invalid_name":"%s"}`, e.Name)}
	case "Custom":
		return &Error{Kind: "ServerError", Info: e.Info, Details: "{}"}
	default:
		return &Error{Kind: e.Kind, Info: e.Info, Details: "{}"}
	}
}

var (
	ErrInvalidToken        = &ServerError{Kind: "InvalidToken"}
	ErrAlreadyJoinedOrLeft = &ServerError{Kind: "AlreadyJoinedOrLeft"}
)

func ErrNameTaken(name string) *ServerError {
	return &ServerError{Kind: "NameTaken", Name: name}
}

// ClientError is a validated protocol failure surfaced to the offending
// client.
type ClientError struct {
	Kind    string
	Object  string
	Reason  string
	Info    string
	Details string
}

func (e *ClientError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Reason) }

func (e *ClientError) ToBody() *Error {
	switch e.Kind {
	case "NameTaken":
		return &Error{Kind: "NameTaken", Info: fmt.Sprintf("the name %q is taken", e.Object),
			Details: fmt.Sprintf(`{"invalid_name":"%s"}`, e.Object)}
	case "InvalidToken":
		return &Error{Kind: "InvalidToken", Info: "the token you gave is invalid", Details: "{}"}
	case "NoLogin":
		return &Error{Kind: "NoLogin", Info: "the action requires login", Details: "{}"}
	case "NoPermission":
		return &Error{Kind: "NoPermission",
			Info:    fmt.Sprintf("the action on %s requires permissions you don't have", e.Object),
			Details: fmt.Sprintf(`{"reason":"%s"}`, e.Reason)}
	case "InvalidObject":
		return &Error{Kind: "InvalidObject", Info: fmt.Sprintf("%s cannot be the object of that action", e.Object),
			Details: fmt.Sprintf(`{"reason":"%s"}`, e.Reason)}
	case "InvalidSubject":
		return &Error{Kind: "InvalidSubject", Info: fmt.Sprintf("%s cannot be the subject of that action", e.Object),
			Details: fmt.Sprintf(`{"reason":"%s"}`, e.Reason)}
	case "InvalidChat":
		return &Error{Kind: "InvalidChat", Info: fmt.Sprintf("%s cannot be targeted for that action", e.Object),
			Details: fmt.Sprintf(`{"reason":"%s"}`, e.Reason)}
	case "InvalidAction":
		return &Error{Kind: "InvalidAction", Info: fmt.Sprintf("the action %q cannot be performed", e.Object),
			Details: fmt.Sprintf(`{"reason":"%s"}`, e.Reason)}
	case "Custom":
		return &Error{Kind: "Custom", Info: e.Info, Details: e.Details}
	default:
		return &Error{Kind: e.Kind, Info: e.Info, Details: "{}"}
	}
}

func ClientErrNameTaken(name string) *ClientError { return &ClientError{Kind: "NameTaken", Object: name} }
func ClientErrNoLogin() *ClientError               { return &ClientError{Kind: "NoLogin"} }
func ClientErrNoPermission(object, reason string) *ClientError {
	return &ClientError{Kind: "NoPermission", Object: object, Reason: reason}
}
func ClientErrInvalidChat(id, reason string) *ClientError {
	return &ClientError{Kind: "InvalidChat", Object: id, Reason: reason}
}
func ClientErrInvalidAction(name, reason string) *ClientError {
	return &ClientError{Kind: "InvalidAction", Object: name, Reason: reason}
}
