package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropTransactionID = "Transaction ID"
	PropUser          = "User"
)

// TransactionToNotionProperties converts a recorded transaction to the
// properties of one page in the transactions database.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	description := tx.Description
	if description == "" {
		description = tx.Type.Label() + ": " + tx.Category
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(description),
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount,
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Type.Label()},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		PropUser: notionapi.RichTextProperty{
			RichText: richText(tx.UserID),
		},
	}

	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category},
		}
	}

	if day, err := time.Parse(domain.DateFormat, tx.Date); err == nil {
		d := notionapi.Date(day)
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}

	var texts []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		texts = p.RichText
	case notionapi.RichTextProperty:
		texts = p.RichText
	}
	if len(texts) == 0 {
		return ""
	}
	if texts[0].PlainText != "" {
		return texts[0].PlainText
	}
	if texts[0].Text != nil {
		return texts[0].Text.Content
	}
	return ""
}
