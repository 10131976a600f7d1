package model

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

const (
	SuccessTitle = "Success!"
	FailureTitle = "Uh oh! Something went wrong."
)

// Notification is the user-visible outcome of one operation.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}

func Success(description string) Notification {
	return Notification{Kind: NotificationSuccess, Title: SuccessTitle, Description: description}
}

func Failure(err error) Notification {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Notification{Kind: NotificationFailure, Title: FailureTitle, Description: msg}
}

func (n Notification) OK() bool {
	return n.Kind == NotificationSuccess
}
