package market

import (
	"encoding/json"
	"fmt"
	"time"
)

// NewAcknowledgementDocument builds the confirmation sent back to the hub
// after metered data has been applied, in the same dialect we consume.
func NewAcknowledgementDocument(messageID, originalMessageID string, transactionIDs []string, sender, receiver GLN, createdAt time.Time) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("acknowledgement: message id is required")
	}
	records := make([]any, 0, len(transactionIDs))
	for _, tx := range transactionIDs {
		records = append(records, map[string]any{
			"originalTransactionIDReference_MktActivityRecord.mRID": wrapped(tx),
		})
	}
	doc := map[string]any{
		"AcknowledgeMeasureData_MarketDocument": map[string]any{
			"mRID":                wrapped(messageID),
			"createdDateTime":     wrapped(createdAt.UTC().Format(time.RFC3339)),
			"process.processType": wrapped("E23"),
			"sender_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": sender.String(),
			},
			"receiver_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": receiver.String(),
			},
			"received_MarketDocument.mRID": wrapped(originalMessageID),
			"MktActivityRecord":            records,
		},
	}
	return json.Marshal(doc)
}

func wrapped(v string) map[string]any { return map[string]any{"value": v} }
