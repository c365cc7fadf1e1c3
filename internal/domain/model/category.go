package model

type Category struct {
	ID   string
	Name string
	Slug string
}

type Tag struct {
	ID   string
	Name string
}
