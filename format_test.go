package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatWatered(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "never", formatWatered(0))
	assert.Equal(t, "just now", formatWatered(now.Add(-5*time.Minute).Unix()))
	assert.Equal(t, "3h ago", formatWatered(now.Add(-3*time.Hour-time.Minute).Unix()))
	assert.Equal(t, "2d ago", formatWatered(now.Add(-49*time.Hour).Unix()))
}

func TestFormatReading(t *testing.T) {
	v := 41.55

	assert.Equal(t, "-", formatReading(nil, "%"))
	assert.Equal(t, "41.5%", formatReading(&v, "%"))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"ID", "NAME"}, [][]string{
		{"p1", "Spike"},
		{"p2", "Fernando"},
	})

	want := "ID  NAME    \n" +
		"p1  Spike   \n" +
		"p2  Fernando\n"
	assert.Equal(t, want, buf.String())
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, isImageFile("/inbox/photo.jpg"))
	assert.True(t, isImageFile("/inbox/PHOTO.JPEG"))
	assert.True(t, isImageFile("/inbox/leaf.png"))
	assert.False(t, isImageFile("/inbox/notes.txt"))
	assert.False(t, isImageFile("/inbox/photo.jpg.part"))
}
