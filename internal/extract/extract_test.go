package extract

import (
	"testing"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExtractor_Plain(t *testing.T) {
	e := NewTextExtractor()

	text, err := e.Extract(domain.DocumentTypeTxt, []byte("  hello world\r\nsecond line\r "))

	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", text)
}

func TestTextExtractor_Markdown(t *testing.T) {
	e := NewTextExtractor()

	text, err := e.Extract(domain.DocumentTypeMarkdown, []byte("# Hours\n\nOpen 9-5."))

	require.NoError(t, err)
	assert.Equal(t, "# Hours\n\nOpen 9-5.", text)
}

func TestTextExtractor_InvalidUTF8(t *testing.T) {
	e := NewTextExtractor()

	_, err := e.Extract(domain.DocumentTypeTxt, []byte{0xff, 0xfe, 0xfd})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestTextExtractor_CSV(t *testing.T) {
	e := NewTextExtractor()

	csvData := []byte("service,price,duration\nDrain cleaning,120,1h\nBoiler service,200,2h\n")
	text, err := e.Extract(domain.DocumentTypeCSV, csvData)

	require.NoError(t, err)
	assert.Contains(t, text, "Headers: service, price, duration")
	assert.Contains(t, text, "service: Drain cleaning, price: 120, duration: 1h")
	assert.Contains(t, text, "service: Boiler service, price: 200, duration: 2h")
}

func TestTextExtractor_CSV_SkipsEmptyFields(t *testing.T) {
	e := NewTextExtractor()

	csvData := []byte("service,price\nEmergency callout,\n")
	text, err := e.Extract(domain.DocumentTypeCSV, csvData)

	require.NoError(t, err)
	assert.Contains(t, text, "service: Emergency callout")
	assert.NotContains(t, text, "price:")
}

func TestTextExtractor_CSV_Empty(t *testing.T) {
	e := NewTextExtractor()

	text, err := e.Extract(domain.DocumentTypeCSV, []byte(""))

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTextExtractor_CSV_Malformed(t *testing.T) {
	e := NewTextExtractor()

	_, err := e.Extract(domain.DocumentTypeCSV, []byte("a,b\n\"unterminated"))

	require.Error(t, err)
}

func TestTextExtractor_UnsupportedType(t *testing.T) {
	e := NewTextExtractor()

	_, err := e.Extract(domain.DocumentType("docx"), []byte("data"))

	assert.Equal(t, domain.ErrUnsupportedDocumentType, err)
}
