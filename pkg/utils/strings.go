package utils

import (
	"strconv"
	"strings"
)

func IsNilOrEmptyString(v *string) bool {
	return v == nil || *v == ""
}

// SplitFields splits a whitespace separated list, dropping empty entries.
func SplitFields(s string) []string {
	return strings.Fields(s)
}

func ConvertInt32PointerToStringPointer(v *int32) *string {
	if v == nil {
		return nil
	}

	s := strconv.FormatInt(int64(*v), 10)

	return &s
}
