// Package report renders inventory and sterilisation records as printable PDF
// documents. It only reads the records it is given.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/endotrace/endotrace/internal/database/models"
)

// Category selects the document title and record layout
type Category string

const (
	CategoryInventory     Category = "inventaire"
	CategorySterilisation Category = "sterilisation"
)

// Title returns the heading printed at the top of a document of this category
func (c Category) Title() string {
	switch c {
	case CategoryInventory:
		return "Rapport d'Inventaire des Endoscopes"
	case CategorySterilisation:
		return "Rapports de Stérilisation et Désinfection"
	}
	return string(c)
}

// Field is one labelled line of a record
type Field struct {
	Label string
	Value string
}

// Record is one block of the document
type Record struct {
	Heading string
	Fields  []Field
	QR      []byte // optional PNG printed above the fields
}

const dateLayout = "02/01/2006 15:04"

// Generate renders records as an A4 PDF. An empty title falls back to the category title.
func Generate(title string, category Category, records []Record) ([]byte, error) {
	if title == "" {
		title = category.Title()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(title, true)
	pdf.SetCreator("EndoTrace", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(width, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.SetLineWidth(0.4)
	pdf.Line(left, pdf.GetY(), left+width, pdf.GetY())
	pdf.Ln(6)

	if len(records) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(width, 6, tr("Aucune donnée disponible"), "", 1, "L", false, 0, "")
	}

	for i, rec := range records {
		heading := fmt.Sprintf("ENREGISTREMENT %d", i+1)
		if rec.Heading != "" {
			heading += " - " + rec.Heading
		}
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(31, 78, 121)
		pdf.CellFormat(width, 8, tr(heading), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		if len(rec.QR) > 0 {
			name := "qr_" + strconv.Itoa(i)
			opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(rec.QR))
			pdf.ImageOptions(name, left, pdf.GetY()+1, 20, 20, true, opts, 0, "")
			pdf.Ln(2)
		}

		for _, f := range rec.Fields {
			if f.Value == "" {
				continue
			}
			pdf.SetFont("Helvetica", "B", 11)
			label := tr(f.Label + ": ")
			lw := pdf.GetStringWidth(label)
			pdf.CellFormat(lw, 6, label, "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(width-lw, 6, tr(f.Value), "", "L", false)
		}
		pdf.Ln(6)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// InventoryPDF renders the endoscope inventory with one QR code per device
func InventoryPDF(title string, endoscopes []*models.Endoscope) ([]byte, error) {
	records := make([]Record, 0, len(endoscopes))
	for _, e := range endoscopes {
		qr, err := QRCode(e.ID, e.Designation, e.NumeroSerie, QRSize)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Heading: e.Designation,
			QR:      qr,
			Fields: []Field{
				{"Id", strconv.FormatInt(e.ID, 10)},
				{"Désignation", e.Designation},
				{"Marque", e.Marque},
				{"Modèle", e.Modele},
				{"Numéro de Série", e.NumeroSerie},
				{"État", e.Etat},
				{"Observations", deref(e.Observation)},
				{"Localisation", e.Localisation},
				{"Créé par", e.CreatedBy},
				{"Date de Création", e.CreatedAt.Format(dateLayout)},
			},
		})
	}
	return Generate(title, CategoryInventory, records)
}

// SterilisationPDF renders sterilisation reports, one block per cycle
func SterilisationPDF(title string, reports []*models.SterilisationReport) ([]byte, error) {
	records := make([]Record, 0, len(reports))
	for _, r := range reports {
		records = append(records, Record{
			Heading: r.Endoscope,
			Fields: []Field{
				{"Id", strconv.FormatInt(r.ID, 10)},
				{"Nom de l'Opérateur", r.NomOperateur},
				{"Endoscope", r.Endoscope},
				{"Numéro de Série", r.NumeroSerie},
				{"Médecin Responsable", r.MedecinResponsable},
				{"Date de Désinfection", r.DateDesinfection},
				{"Type de Désinfection", r.TypeDesinfection},
				{"Cycle", r.Cycle},
				{"Test d'Étanchéité", r.TestEtancheite},
				{"Heure de Début", r.HeureDebut},
				{"Heure de Fin", r.HeureFin},
				{"Procédure Médicale", deref(r.ProcedureMedicale)},
				{"Salle", r.Salle},
				{"Type d'Acte", r.TypeActe},
				{"État de l'Endoscope", r.EtatEndoscope},
				{"Nature de la Panne", deref(r.NaturePanne)},
				{"Créé par", r.CreatedBy},
				{"Date de Création", r.CreatedAt.Format(dateLayout)},
			},
		})
	}
	return Generate(title, CategorySterilisation, records)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
