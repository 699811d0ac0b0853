package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cerno/internal/model"
)

func TestClassify_Warning(t *testing.T) {
	r := Classify("Never delete production data without a backup.", "")
	assert.Equal(t, model.CategoryWarning, r.Category)
}

func TestClassify_Convention(t *testing.T) {
	r := Classify("Always use camelCase naming for local variables.", "")
	assert.Equal(t, model.CategoryConvention, r.Category)
}

func TestClassify_DefaultCategory(t *testing.T) {
	r := Classify("The quick brown fox jumps over the lazy dog.", "")
	assert.Equal(t, model.CategoryFact, r.Category)
}

func TestClassify_TagsCappedAndDeduped(t *testing.T) {
	r := Classify("Test coverage for error handling, security, database, api, and concurrency all matter for performance.", "Testing Heading")
	assert.LessOrEqual(t, len(r.Tags), 5)
}

func TestClassify_Domain(t *testing.T) {
	r := Classify("In golang, always close the response body.", "")
	assert.Equal(t, "go", r.Domain)
}
