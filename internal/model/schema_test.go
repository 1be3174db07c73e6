package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/common"
)

func TestReceiptSchemaValidation(t *testing.T) {
	schema := BuildSchema(constants.Receipt, []string{"Groceries", "Other"})

	valid := []byte(`{
		"merchant_name": "Trader Joe's",
		"tx_date": "2024-03-15",
		"tx_time": "14:32",
		"total": "42.50",
		"tax": "3.10",
		"currency_code": "USD",
		"category": "Groceries",
		"payment_last4": "1234",
		"items": [{"name": "Milk", "quantity": "2", "unit_price": "3.99"}],
		"confidence": 0.92
	}`)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, valid))

	cases := map[string][]byte{
		"missing required total": []byte(`{
			"merchant_name": "Cafe", "tx_date": "2024-03-15", "currency_code": "USD"}`),
		"bad date format": []byte(`{
			"merchant_name": "Cafe", "tx_date": "15/03/2024", "total": "10.00", "currency_code": "USD"}`),
		"numeric total": []byte(`{
			"merchant_name": "Cafe", "tx_date": "2024-03-15", "total": 10.0, "currency_code": "USD"}`),
		"category outside taxonomy": []byte(`{
			"merchant_name": "Cafe", "tx_date": "2024-03-15", "total": "10.00",
			"currency_code": "USD", "category": "Snacks"}`),
		"unknown property": []byte(`{
			"merchant_name": "Cafe", "tx_date": "2024-03-15", "total": "10.00",
			"currency_code": "USD", "vibe": "cozy"}`),
	}
	for name, doc := range cases {
		assert.Error(t, ValidateJSONAgainstSchema(schema, doc), name)
	}
}

func TestResumeSchemaValidation(t *testing.T) {
	schema := BuildSchema(constants.Resume, nil)

	valid := []byte(`{
		"full_name": "Jordan Blake",
		"category": "Software Engineering",
		"years_experience": "7.5",
		"highest_education": "MSc Computer Science",
		"skills": ["Go", "SQL"]
	}`)
	require.NoError(t, ValidateJSONAgainstSchema(schema, valid))

	missing := []byte(`{"full_name": "Jordan Blake", "category": "Software Engineering"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, missing))

	numericYears := []byte(`{
		"category": "Software Engineering", "years_experience": 7.5,
		"highest_education": "MSc"}`)
	assert.Error(t, ValidateJSONAgainstSchema(schema, numericYears))
}

func TestDecimalPatternAllowsNegatives(t *testing.T) {
	schema := BuildSchema(constants.Receipt, nil)
	doc := []byte(`{
		"merchant_name": "Outlet", "tx_date": "2024-03-15", "total": "8.00",
		"currency_code": "USD", "discount": "-2.50"}`)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, doc))
}

func TestValidationErrorWrapsSentinel(t *testing.T) {
	schema := BuildSchema(constants.Receipt, nil)
	err := ValidateJSONAgainstSchema(schema, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}
