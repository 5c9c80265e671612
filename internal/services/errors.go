package services

import (
	"net/http"

	apperrors "github.com/charlesng35/campusconnect/pkg/errors"
)

var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrConcurrentUpdate indicates every retry lost the race against another writer.
	ErrConcurrentUpdate = apperrors.New("PROJECT_CONCURRENT_UPDATE", "The project was modified concurrently, please retry", http.StatusConflict)
	// ErrTaskNotFound indicates the requested task does not exist on the project.
	ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
)
