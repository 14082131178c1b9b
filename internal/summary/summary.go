package summary

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

// Key is the storage key of the summary document. Every writer replaces the
// whole document so readers never see a mix of two boards.
const Key = "board-summary.yaml"

// DateLayout formats Summary.CreatedDate.
const DateLayout = "2006-01-02"

// Summary is the progress snapshot shared with views that hold no live board.
// All values are strings.
type Summary struct {
	Country     string `yaml:"country"`
	BoardID     string `yaml:"boardId"`
	GoalCount   string `yaml:"goalCount"`
	DoneCount   string `yaml:"doneCount"`
	CreatedDate string `yaml:"createdDate"`
	OwnerEmail  string `yaml:"ownerEmail"`
}

func (s Summary) Goal() int {
	n, _ := strconv.Atoi(s.GoalCount)
	return n
}

func (s Summary) Done() int {
	n, _ := strconv.Atoi(s.DoneCount)
	return n
}

// Percent returns done/goal as a whole percentage, 0 when there is no goal.
func (s Summary) Percent() int {
	if s.Goal() == 0 {
		return 0
	}
	return s.Done() * 100 / s.Goal()
}

type Repository struct {
	storage storage.Storage
}

func NewRepository(s storage.Storage) *Repository {
	return &Repository{storage: s}
}

func (r *Repository) Save(ctx context.Context, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode summary", err)
	}
	if err := r.storage.Write(ctx, Key, data); err != nil {
		return cerr.WrapStorageWriteError("summary", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context) (Summary, error) {
	data, err := r.storage.Read(ctx, Key)
	if err != nil {
		return Summary{}, cerr.WrapStorageReadError("summary", err)
	}
	return Decode(data)
}

// Clear removes the summary, as done when the client cache is cleared.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.storage.Delete(ctx, Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return cerr.WrapStorageDeleteError("summary", err)
	}
	return nil
}

func Decode(data []byte) (Summary, error) {
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Summary{}, cerr.NewError(cerr.DataLoss, "summary is corrupt", fmt.Errorf("failed to unmarshal summary: %w", err))
	}
	return s, nil
}
