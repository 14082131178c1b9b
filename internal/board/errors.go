package board

import (
	"fmt"

	"github.com/kazz187/taskboard/pkg/cerr"
)

var errNoBoard = cerr.NewError(cerr.FailedPrecondition, "no board loaded", nil)

func errMissingFeature(name string) error {
	return cerr.Validationf("feature %q is required", name)
}

func errNoBoardFound(owner string) error {
	return cerr.NewError(cerr.NotFound, "no board found", fmt.Errorf("owner %s", owner))
}
