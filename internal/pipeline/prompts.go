package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const personaPrompt = `Anda adalah Asisten Keuangan AI yang membantu pengguna mengelola keuangan pribadi mereka.
Tugas Anda:
- Memberikan saran tentang pengelolaan keuangan pribadi
- Membantu pengguna mencatat dan menganalisis pengeluaran
- Memberikan tips menabung dan investasi dasar
- Menjawab pertanyaan seputar keuangan dengan bijak dan bertanggung jawab

PENTING:
- Gunakan bahasa Indonesia yang ramah dan mudah dipahami
- Jangan memberikan saran investasi berisiko tinggi tanpa peringatan
- Selalu ingatkan pengguna untuk bertanggung jawab dalam pengambilan keputusan keuangan
- Fokus pada edukasi keuangan yang sehat`

// buildClassifierPrompt is the fixed instruction for the intent call. The
// suggestion lists are read from the shared category table.
func buildClassifierPrompt(today time.Time) string {
	var b strings.Builder

	b.WriteString("You are a classifier for a personal finance assistant.\n")
	b.WriteString("Decide whether the user's message asks to record a financial transaction ")
	b.WriteString("(intent \"record_transaction\") or is anything else (intent \"general_chat\").\n\n")

	b.WriteString("When the intent is record_transaction, extract:\n")
	b.WriteString("- type: \"income\" or \"expense\"\n")
	b.WriteString("- amount: a positive number in Rupiah. Convert shorthand: \"50 ribu\" or \"50rb\" = 50000, \"1,5 juta\" or \"1.5jt\" = 1500000.\n")
	b.WriteString("- category: one of the suggestions below when it fits, otherwise a short label\n")
	b.WriteString("- description: a short description in the user's words, or null\n")
	fmt.Fprintf(&b, "- date: YYYY-MM-DD, or null if not mentioned. Today is %s; resolve \"kemarin\" and similar relative to today.\n\n",
		today.Format(domain.DateFormat))

	fmt.Fprintf(&b, "Income categories: %s\n", strings.Join(domain.Suggestions(domain.TypeIncome), ", "))
	fmt.Fprintf(&b, "Expense categories: %s\n\n", strings.Join(domain.Suggestions(domain.TypeExpense), ", "))

	b.WriteString("Return ONLY one raw JSON object with exactly these keys:\n")
	b.WriteString(`{"intent": "record_transaction" | "general_chat", "type": "income" | "expense" | null, "amount": number | null, "category": string | null, "description": string | null, "date": string | null}` + "\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("For general_chat, set every other field to null.\n")

	return b.String()
}

// buildReplyPrompt augments the persona with the outcome of this turn's
// recording attempt. A nil outcome means nothing was attempted.
func buildReplyPrompt(outcome *RecordOutcome) string {
	if outcome == nil {
		return personaPrompt
	}

	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n\n")

	if outcome.Success && outcome.Saved != nil {
		tx := outcome.Saved
		b.WriteString("TRANSAKSI BERHASIL DICATAT:\n")
		fmt.Fprintf(&b, "- Jenis: %s\n", tx.Type.Label())
		fmt.Fprintf(&b, "- Jumlah: %s\n", domain.FormatRupiah(tx.Amount))
		fmt.Fprintf(&b, "- Kategori: %s\n", tx.Category)
		fmt.Fprintf(&b, "- Deskripsi: %s\n", tx.Description)
		fmt.Fprintf(&b, "- Tanggal: %s\n\n", tx.Date)
		b.WriteString("Konfirmasikan kepada pengguna bahwa transaksi di atas sudah tersimpan, lalu berikan komentar singkat yang relevan.")
		return b.String()
	}

	b.WriteString("TRANSAKSI GAGAL DICATAT:\n")
	fmt.Fprintf(&b, "- Alasan: %s\n\n", outcome.Error)
	b.WriteString("Beri tahu pengguna dengan sopan bahwa transaksi belum tersimpan dan sarankan untuk mencoba lagi nanti.")
	return b.String()
}
