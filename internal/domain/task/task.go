package task

import "errors"

var ErrNotFound = errors.New("task not found")

type Task struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// used for both create and full update
type WriteTaskRequest struct {
	Name string `json:"name" form:"name" binding:"max=500"`
}
