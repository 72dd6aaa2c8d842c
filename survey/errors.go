package survey

import (
	"errors"
	"fmt"

	"github.com/mbolis/survey-wolf/interact"
	"github.com/mbolis/survey-wolf/store"
)

// Failure is a refusal the user should read as is.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func failf(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

func notFound(title string) error {
	return failf("No Survey Named `%s` Found", title)
}

const (
	failTitle    = "You Can Not Do That"
	successTitle = "Success!"
)

func failNotice(msg string) interact.Notice {
	return interact.Notice{Kind: interact.Fail, Title: failTitle, Body: msg}
}

func successNotice(msg string) interact.Notice {
	return interact.Notice{Kind: interact.Success, Title: successTitle, Body: msg}
}

func infoNotice(title, body string) interact.Notice {
	return interact.Notice{Kind: interact.Info, Title: title, Body: body}
}

// Describe turns an error of the service into the notice shown to the user.
// Unexpected errors all read "An Error Occurred".
func Describe(err error) interact.Notice {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return failNotice(f.Message)
	case errors.Is(err, store.ErrSurveyClosed), errors.Is(err, store.ErrSurveyExpired):
		return failNotice("Sorry! This Survey Has Ended")
	case errors.Is(err, store.ErrEntryLimit):
		return failNotice("You Have Taken The Survey The Maximum Amount Of Times")
	case errors.Is(err, store.ErrMaxEntries):
		return failNotice("Sorry! This Survey Has Reached The Maximum Amount Of Entries")
	case errors.Is(err, store.ErrDuplicateTitle):
		return failNotice("There Is Already A Survey With That Name")
	case errors.Is(err, store.ErrConflict):
		return failNotice("The Survey Was Changed While You Were Editing It, Please Try Again")
	case errors.Is(err, store.ErrTypeChange):
		return failNotice("The Type Of A Saved Question Can Not Be Changed")
	case errors.Is(err, interact.ErrTimeout):
		return infoNotice("Timed Out", "You Took Too Long To Answer")
	}
	return interact.Notice{Kind: interact.Error, Title: "Error", Body: "An Error Occurred"}
}
