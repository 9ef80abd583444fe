package library

import "fmt"

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the discriminated record handed back to the conversational front
// end for every tool call.
type Result struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Notice       string `json:"aviso,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Details      any    `json:"detalhes,omitempty"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Success builds a success record.
func Success(message string, details any) Result {
	return Result{Status: StatusSuccess, Message: message, Details: details}
}

// Failure builds an error record from any error.
func Failure(err error) Result {
	libErr := classify(err)
	if libErr == nil {
		libErr = newError(ErrStorage, nil, "unknown error")
	}
	return Result{Status: StatusError, ErrorKind: libErr.Code(), ErrorMessage: libErr.Message}
}

// Outcome turns the return values of an operation into a Result. Payloads
// that know their own message or notice contribute them.
func Outcome(payload any, err error) Result {
	if err != nil {
		return Failure(err)
	}
	r := Result{Status: StatusSuccess, Details: payload}
	if m, ok := payload.(interface{ Message() string }); ok {
		r.Message = m.Message()
	}
	if n, ok := payload.(interface{ Notice() string }); ok {
		r.Notice = n.Notice()
	}
	return r
}

// Message implements the confirmation text of a loan.
func (c *LoanConfirmation) Message() string { return "Empréstimo realizado com sucesso!" }

// Message implements the confirmation text of a return.
func (r *Receipt) Message() string { return "Devolução realizada com sucesso!" }

// Notice is the late-return warning, empty when the book came back on time.
func (r *Receipt) Notice() string {
	if !r.Late() {
		return ""
	}
	return fmt.Sprintf("Livro devolvido com %d dia(s) de atraso.", r.DaysLate)
}

// Message summarizes the active loans of a user.
func (u *UserLoans) Message() string {
	if len(u.Loans) == 0 {
		return fmt.Sprintf("Usuário '%s' não possui empréstimos ativos.", u.User)
	}
	return fmt.Sprintf("Usuário '%s' possui %d empréstimo(s) ativo(s).", u.User, len(u.Loans))
}
