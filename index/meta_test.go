package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeyStopsAtFirstNonDigit(t *testing.T) {
	assert.EqualValues(t, 12345, parseKey([]byte("12345xyz")))
	assert.EqualValues(t, 0, parseKey([]byte("")))
	assert.EqualValues(t, 7, parseKey([]byte("007")))
	assert.EqualValues(t, 0, parseKey([]byte("xyz")))
}

func TestParseKeySaturatesOnOverflow(t *testing.T) {
	assert.EqualValues(t, math.MaxUint32, parseKey([]byte("99999999999999999999")))
}

func TestFileNumberOfRoundTrips(t *testing.T) {
	m := metaWithFileNumber(123456)
	assert.EqualValues(t, 123456, fileNumberOf(m))
	assert.EqualValues(t, 0, fileNumberOf(nil))
}
