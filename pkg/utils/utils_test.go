package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

func TestDeref(t *testing.T) {
	assert.Equal(t, "", utils.Deref[string](nil))
	assert.Equal(t, 3, utils.Deref(utils.PtrTo(3)))
}

func TestStringHelpers(t *testing.T) {
	assert.True(t, utils.IsNilOrEmptyString(nil))
	assert.True(t, utils.IsNilOrEmptyString(utils.PtrTo("")))
	assert.Equal(t, []string{"x0", "x1"}, utils.SplitFields("  x0 \t x1\n"))
	assert.Nil(t, utils.ConvertInt32PointerToStringPointer(nil))
	assert.Equal(t, "42", *utils.ConvertInt32PointerToStringPointer(utils.PtrTo(int32(42))))
}
