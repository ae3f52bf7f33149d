package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateDetector_Checksum(t *testing.T) {
	t.Parallel()
	d := &DuplicateDetector{}

	a := d.Checksum("# Title\n\nbody text")
	b := d.Checksum("# Title\n\nbody text")
	c := d.Checksum("# Title\n\ndifferent body")

	assert.Equal(t, a, b, "identical content must hash identically")
	assert.NotEqual(t, a, c, "different content must hash differently")
}

func TestDuplicateDetector_ChecksumEmptyString(t *testing.T) {
	t.Parallel()
	d := &DuplicateDetector{}
	assert.Equal(t, d.Checksum(""), d.Checksum(""))
}
