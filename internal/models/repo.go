package models

import "fmt"

// Repository holds the static coordinates the bot works against
type Repository struct {
	Owner  string `yaml:"owner"`
	Name   string `yaml:"name"`
	Branch string `yaml:"branch"`
	Base   string `yaml:"base"`
	Path   string `yaml:"path"`
}

// FullName returns "owner/name"
func (r Repository) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// HeadRef returns the "owner:branch" form GitHub uses for pull request heads
func (r Repository) HeadRef() string {
	return fmt.Sprintf("%s:%s", r.Owner, r.Branch)
}
