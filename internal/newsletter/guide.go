package newsletter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

type guideSection struct {
	title string
	body  string
}

var guideSections = []guideSection{
	{
		title: "1. Définir son capital de risque",
		body: "N'investissez que l'argent que vous pouvez vous permettre de perdre. Fixez dès le départ " +
			"le montant alloué au trading et ne le complétez jamais pour « se refaire » après une perte.",
	},
	{
		title: "2. La règle des 1 %",
		body: "Ne risquez jamais plus de 1 % de votre capital sur une seule position. Avec 2 000 €, " +
			"la perte maximale acceptée par trade est donc de 20 €.",
	},
	{
		title: "3. Toujours un stop-loss",
		body: "Placez votre stop avant d'entrer en position, à un niveau qui invalide votre scénario. " +
			"Un stop déplacé dans le mauvais sens n'est plus un stop.",
	},
	{
		title: "4. Un plan écrit",
		body: "Notez vos conditions d'entrée, de sortie et de gestion. Si la configuration n'est pas " +
			"dans votre plan, vous ne la tradez pas.",
	},
	{
		title: "5. Tenir un journal",
		body: "Chaque trade est consigné : contexte, raison d'entrée, résultat, émotions. Relisez-le " +
			"chaque semaine pour repérer vos erreurs récurrentes.",
	},
}

// RenderGuide builds the beginner guide PDF, personalised with name.
func RenderGuide(name string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Guide du trader débutant", true)
	pdf.SetAuthor("Trading Academy", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Trading Academy - page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(20, 40, 80)
	pdf.CellFormat(0, 12, tr("Guide du trader débutant"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	greeting := "Bonjour,"
	if n := strings.TrimSpace(name); n != "" {
		greeting = "Bonjour " + n + ","
	}
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 6, tr(greeting), "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(0, 6, tr("Voici les cinq règles de gestion du risque que nous enseignons à tous nos élèves "+
		"avant leur premier trade."), "", "L", false)
	pdf.Ln(6)

	for _, s := range guideSections {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(20, 40, 80)
		pdf.MultiCell(0, 8, tr(s.title), "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(0, 6, tr(s.body), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, tr("Le trading comporte un risque de perte en capital. Ce guide est fourni à titre "+
		"pédagogique et ne constitue pas un conseil en investissement."), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("newsletter: render guide: %w", err)
	}
	return buf.Bytes(), nil
}
