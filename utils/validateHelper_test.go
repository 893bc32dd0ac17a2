package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleLine struct {
	AccountID int    `validate:"required,gt=0"`
	Memo      string `validate:"max=5"`
}

type sampleInput struct {
	Name  string       `validate:"required"`
	Lines []sampleLine `validate:"dive"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sampleInput{Name: "ok", Lines: []sampleLine{{AccountID: 1}}}))

	err := ValidateStruct(&sampleInput{Lines: []sampleLine{{AccountID: 1}, {Memo: "too long"}}})
	assert.EqualError(t, err, "Lines[1].AccountID: required; Lines[1].Memo: max; Name: required")
}
