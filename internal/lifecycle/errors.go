package lifecycle

import (
	"fmt"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

// SubmitError is returned when the generation API refused a submission.
// Message is the human readable reason reported by the remote side.
type SubmitError struct {
	Kind    domain.TaskType
	Region  domain.Region
	Message string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("lifecycle: submit %s (%s): %s", e.Kind, e.Region, e.Message)
}
