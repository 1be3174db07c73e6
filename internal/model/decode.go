package model

import (
	"encoding/json"

	"github.com/arampall/intelligent-document-extraction/constants"
)

// DecodeFields unmarshals validated JSON into the typed fields slot that
// matches the result's DocType.
func (r *Result) DecodeFields(data []byte) error {
	switch r.DocType {
	case constants.Resume:
		var f ResumeFields
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		r.Resume = &f
	default:
		var f ReceiptFields
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		r.Receipt = &f
	}
	return nil
}
