// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
)

// UpdateCall captures one UpdateTaskCustomField invocation.
type UpdateCall struct {
	TaskGID      string
	FieldGID     string
	EnumValueGID string
}

// FakeTaskStore is an in-memory test double for the sync engine's task store.
//
// Every update attempt is recorded, including the ones configured to fail.
type FakeTaskStore struct {
	mu sync.Mutex

	tasks    map[string]models.Task
	subtasks map[string][]string

	GetTaskErrs  map[string]error
	SubtaskErrs  map[string]error
	UpdateErrs   map[string]error
	getTaskCalls []string
	optFields    [][]string
	updates      []UpdateCall
}

// NewFakeTaskStore creates an empty store.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{
		tasks:       make(map[string]models.Task),
		subtasks:    make(map[string][]string),
		GetTaskErrs: make(map[string]error),
		SubtaskErrs: make(map[string]error),
		UpdateErrs:  make(map[string]error),
	}
}

// AddTask stores or replaces a task.
func (f *FakeTaskStore) AddTask(task models.Task) *FakeTaskStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.GID] = task
	return f
}

// AddSubtasks creates subtasks of parentGID in the given order.
func (f *FakeTaskStore) AddSubtasks(parentGID string, gids ...string) *FakeTaskStore {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, gid := range gids {
		f.tasks[gid] = models.Task{
			GID:    gid,
			Parent: &models.Resource{GID: parentGID, ResourceType: models.ResourceTask},
		}
		f.subtasks[parentGID] = append(f.subtasks[parentGID], gid)
	}
	return f
}

func (f *FakeTaskStore) GetTask(ctx context.Context, gid string, optFields ...string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getTaskCalls = append(f.getTaskCalls, gid)
	f.optFields = append(f.optFields, slices.Clone(optFields))

	if err := f.GetTaskErrs[gid]; err != nil {
		return nil, err
	}

	task, ok := f.tasks[gid]
	if !ok {
		return nil, fmt.Errorf("get task %s: %w", gid, shared.ErrNotFound)
	}

	task.CustomFields = slices.Clone(task.CustomFields)
	return &task, nil
}

func (f *FakeTaskStore) GetSubtasks(ctx context.Context, parentGID string) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.SubtaskErrs[parentGID]; err != nil {
		return nil, err
	}

	var result []models.Task
	for _, gid := range f.subtasks[parentGID] {
		result = append(result, f.tasks[gid])
	}
	return result, nil
}

func (f *FakeTaskStore) UpdateTaskCustomField(ctx context.Context, taskGID, fieldGID, enumValueGID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, UpdateCall{TaskGID: taskGID, FieldGID: fieldGID, EnumValueGID: enumValueGID})
	return f.UpdateErrs[taskGID]
}

// Updates returns a copy of every recorded update attempt, in call order.
func (f *FakeTaskStore) Updates() []UpdateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

// GetTaskCalls returns the gids passed to GetTask, in call order.
func (f *FakeTaskStore) GetTaskCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.getTaskCalls)
}

// OptFields returns the opt_fields passed to each GetTask call.
func (f *FakeTaskStore) OptFields() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.optFields)
}

// PriorityTask builds a root task with a single priority enum field.
//
// An empty valueGID leaves the field unset.
func PriorityTask(gid, fieldGID, valueGID, label string) models.Task {
	field := models.CustomField{GID: fieldGID, Name: "Priority"}
	if valueGID != "" {
		field.DisplayValue = label
		field.EnumValue = &models.EnumOption{GID: valueGID, Name: label}
	}
	return models.Task{GID: gid, CustomFields: []models.CustomField{field}}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading a request or response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)
