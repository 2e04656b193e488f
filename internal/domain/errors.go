package domain

import "errors"

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrSlugTaken          = errors.New("slug already exists")
	ErrAdminExists        = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)
