package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
)

// DefaultBatchSize is the number of vendor messages inserted per statement
const DefaultBatchSize = 100

// ImportResult summarizes a batch import. Messages skipped as duplicates
// count as neither imported nor failed.
type ImportResult struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// ImportMessages inserts a batch of vendor messages into a conversation.
// Input order is preserved across fixed-size batches; duplicates on
// (conversation_id, external_id) are dropped by insert-ignore so re-imports
// are idempotent. A storage error fails that whole batch and processing
// continues with the next one. After all batches the conversation summary is
// refreshed from the latest imported message; that update is best-effort and
// only logged on failure. Cancellation is honored between batches, never
// mid-batch.
func ImportMessages(ctx context.Context, db *gorm.DB, conversationID uint, messages []ExternalMessage, batchSize int) (ImportResult, error) {
	var result ImportResult
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	conversation, err := GetConversation(db, conversationID)
	if err != nil {
		return result, err
	}
	if len(messages) == 0 {
		return result, nil
	}

	var latest *ExternalMessage
	for start := 0; start < len(messages); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		end := start + batchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[start:end]

		affected, err := insertBatch(db, conversation, batch)
		if err != nil {
			log.Printf("importing batch %d-%d into conversation %d: %v", start, end, conversationID, err)
			result.Failed += len(batch)
			continue
		}
		result.Imported += int(affected)
		if affected > 0 {
			for i := range batch {
				if latest == nil || batch[i].Timestamp > latest.Timestamp {
					latest = &batch[i]
				}
			}
		}
	}

	if result.Imported > 0 && latest != nil {
		// The candidate comes from an affected batch but may itself have been
		// a duplicate skip, so the guard keeps the summary from moving backwards
		lastAt := time.Unix(latest.Timestamp, 0)
		err := db.Model(&Conversation{}).
			Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", conversationID, lastAt).
			Updates(map[string]interface{}{
				"last_message":    latest.ContentText(),
				"last_message_at": lastAt,
			}).Error
		if err != nil {
			log.Printf("updating conversation %d summary after import: %v", conversationID, err)
		}
	}
	return result, nil
}

func insertBatch(db *gorm.DB, conversation *Conversation, batch []ExternalMessage) (int64, error) {
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*7)
	for _, message := range batch {
		sender := conversation.Recipient
		if message.FromMe {
			sender = conversation.OwnerUserID
		}
		var externalID interface{}
		if message.ID != "" {
			externalID = message.ID
		}
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			conversation.ID,
			message.ContentText(),
			message.Direction(),
			StatusFromAck(message.Ack),
			externalID,
			sender,
			time.Unix(message.Timestamp, 0),
		)
	}
	query := fmt.Sprintf(
		`INSERT INTO messages (conversation_id, content, direction, status, external_id, sender_id, created_at) VALUES %s ON CONFLICT (conversation_id, external_id) DO NOTHING`,
		strings.Join(placeholders, ", "),
	)
	res := db.Exec(query, args...)
	return res.RowsAffected, res.Error
}
