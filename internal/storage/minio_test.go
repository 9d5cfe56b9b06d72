package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	a := ObjectName("MHG-0A1B2C3D", "Pothole.JPG")
	b := ObjectName("MHG-0A1B2C3D", "Pothole.JPG")

	assert.True(t, strings.HasPrefix(a, "MHG-0A1B2C3D/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)

	noExt := ObjectName("MHG-0A1B2C3D", "notes")
	assert.Len(t, strings.TrimPrefix(noExt, "MHG-0A1B2C3D/"), 36)
}
