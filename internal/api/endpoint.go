package api

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/kazz187/taskboard/pkg/cerr"
)

// Operation names a backend call. The set is closed; see endpoints.
type Operation string

const (
	OpCreateBoard    Operation = "createBoard"
	OpSearchBoards   Operation = "searchBoards"
	OpGetBoard       Operation = "getBoard"
	OpGetTask        Operation = "getTask"
	OpUpdateTask     Operation = "updateTask"
	OpCommentTask    Operation = "commentTask"
	OpUploadTaskFile Operation = "uploadTaskFile"
	OpApproveFile    Operation = "approveFile"
	OpRejectFile     Operation = "rejectFile"
	OpGetUser        Operation = "getUser"
	OpGetFilesFolder Operation = "getFilesFolder"
	OpListCountries  Operation = "listCountries"
)

// Endpoint describes where an operation lives on the backend.
type Endpoint struct {
	Operation Operation
	Path      string // template with {param} placeholders
	Method    string
}

var endpoints = map[Operation]Endpoint{
	OpCreateBoard:    {OpCreateBoard, "/boards", http.MethodPost},
	OpSearchBoards:   {OpSearchBoards, "/boards/search/{owner}", http.MethodGet},
	OpGetBoard:       {OpGetBoard, "/boards/{boardId}", http.MethodGet},
	OpGetTask:        {OpGetTask, "/boards/{boardId}/tasks/{taskId}", http.MethodGet},
	OpUpdateTask:     {OpUpdateTask, "/boards/{boardId}/tasks/{taskId}", http.MethodPatch},
	OpCommentTask:    {OpCommentTask, "/boards/{boardId}/tasks/{taskId}/comments", http.MethodPost},
	OpUploadTaskFile: {OpUploadTaskFile, "/boards/{boardId}/tasks/{taskId}/files", http.MethodPost},
	OpApproveFile:    {OpApproveFile, "/files/{fileId}/approve", http.MethodPost},
	OpRejectFile:     {OpRejectFile, "/files/{fileId}/reject", http.MethodPost},
	OpGetUser:        {OpGetUser, "/users/{userId}", http.MethodGet},
	OpGetFilesFolder: {OpGetFilesFolder, "/users/{userId}/files-folder", http.MethodGet},
	OpListCountries:  {OpListCountries, "/countries", http.MethodGet},
}

// Lookup returns the endpoint for op.
func Lookup(op Operation) (Endpoint, bool) {
	ep, ok := endpoints[op]
	return ep, ok
}

// Operations returns every known operation.
func Operations() []Operation {
	ops := make([]Operation, 0, len(endpoints))
	for op := range endpoints {
		ops = append(ops, op)
	}
	return ops
}

// Params holds values for path placeholders.
type Params map[string]string

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Request is a fully resolved backend call, ready to be sent.
type Request struct {
	Operation Operation
	Method    string
	Path      string
	Body      any
}

// Upload reports whether the body must be sent as multipart.
func (r *Request) Upload() (*FileUpload, bool) {
	u, ok := r.Body.(*FileUpload)
	return u, ok
}

// Describe resolves op and params into a Request. Every placeholder in the
// path template must be provided.
func Describe(op Operation, body any, params Params) (*Request, error) {
	ep, ok := Lookup(op)
	if !ok {
		return nil, cerr.Validationf("unknown operation %q", op)
	}
	var missing []string
	path := placeholder.ReplaceAllStringFunc(ep.Path, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := params[key]
		if !ok || v == "" {
			missing = append(missing, key)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return nil, cerr.Validationf("unresolved path parameters for %s: %s", op, strings.Join(missing, ", "))
	}
	if ep.Method == http.MethodGet {
		body = nil
	}
	return &Request{
		Operation: op,
		Method:    ep.Method,
		Path:      path,
		Body:      body,
	}, nil
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Method, r.Path, r.Operation)
}
