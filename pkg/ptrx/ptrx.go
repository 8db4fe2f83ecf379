package ptrx

// String returns a pointer value for the string value passed in.
func String(v string) *string {
	return &v
}

// NonEmpty returns a pointer to v, or nil when v is the empty string.
// Used for optional request parameters where "absent" and "" mean the same.
func NonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// StringValue returns the value of the string pointer passed in or
// "" if the pointer is nil.
func StringValue(v *string) string {
	if v != nil {
		return *v
	}
	return ""
}

// Bool returns a pointer value for the bool value passed in.
func Bool(v bool) *bool {
	return &v
}

// BoolValueOr returns the value of the bool pointer passed in or def if the pointer is nil.
func BoolValueOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}
