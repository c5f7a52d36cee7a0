package models

// All lists every model that is migrated at startup.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Post{}, &Comment{}}
}
