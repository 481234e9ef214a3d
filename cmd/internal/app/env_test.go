package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvString(t *testing.T) {
	t.Setenv("PAZAR_TEST_STR", "  value  ")
	assert.Equal(t, "value", EnvString("PAZAR_TEST_STR", "def"))
	assert.Equal(t, "def", EnvString("PAZAR_TEST_STR_MISSING", "def"))
}

func TestEnvBool(t *testing.T) {
	t.Setenv("PAZAR_TEST_BOOL", "true")
	assert.True(t, EnvBool("PAZAR_TEST_BOOL", false))

	t.Setenv("PAZAR_TEST_BOOL", "0")
	assert.False(t, EnvBool("PAZAR_TEST_BOOL", true))

	t.Setenv("PAZAR_TEST_BOOL", "not-a-bool")
	assert.True(t, EnvBool("PAZAR_TEST_BOOL", true))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("PAZAR_TEST_INT", "42")
	assert.Equal(t, 42, EnvInt("PAZAR_TEST_INT", 7))

	t.Setenv("PAZAR_TEST_INT", "-1")
	assert.Equal(t, 7, EnvInt("PAZAR_TEST_INT", 7))

	t.Setenv("PAZAR_TEST_INT", "zero")
	assert.Equal(t, 7, EnvInt("PAZAR_TEST_INT", 7))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("PAZAR_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, EnvDuration("PAZAR_TEST_DUR", time.Minute))

	t.Setenv("PAZAR_TEST_DUR", "-5s")
	assert.Equal(t, time.Minute, EnvDuration("PAZAR_TEST_DUR", time.Minute))
}

func TestEnvStringSlice(t *testing.T) {
	t.Setenv("PAZAR_TEST_SLICE", "a, b ,,c")
	assert.Equal(t, []string{"a", "b", "c"}, EnvStringSlice("PAZAR_TEST_SLICE", nil))

	t.Setenv("PAZAR_TEST_SLICE", " , ")
	assert.Equal(t, []string{"def"}, EnvStringSlice("PAZAR_TEST_SLICE", []string{"def"}))
}
