package services

import (
	"context"
	"fmt"
	"io"

	"chefbot_go_backend/internal/locales"
	"chefbot_go_backend/internal/models"

	"github.com/jung-kurt/gofpdf"
)

// FavoritesExporter renders a user's saved recipes as a PDF document.
type FavoritesExporter struct {
	favorites FavoritesManager
	texts     locales.Renderer
}

func NewFavoritesExporter(favorites FavoritesManager, texts locales.Renderer) *FavoritesExporter {
	return &FavoritesExporter{favorites: favorites, texts: texts}
}

// Export writes the PDF to w and returns the number of recipes in it.
func (e *FavoritesExporter) Export(ctx context.Context, userID int64, lang models.Language, w io.Writer) (int, error) {
	favs, err := e.favorites.All(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load favorites: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// TODO: embed a UTF-8 font with AddUTF8Font so Cyrillic names survive the export.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(e.texts.Render(lang, "export_title", nil), true)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, tr(e.texts.Render(lang, "export_title", nil)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(favs) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 6, tr(e.texts.Render(lang, "favorites_empty", nil)), "", "L", false)
	}
	for i, f := range favs {
		if i > 0 {
			pdf.Ln(6)
		}
		pdf.SetFont("Arial", "B", 14)
		pdf.MultiCell(0, 8, tr(f.DishName), "", "L", false)
		if f.Category != "" && f.Category != models.CategoryUnknown {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 5, tr(e.texts.Render(lang, "category_"+string(f.Category), nil)), "", "L", false)
		}
		if f.RecipeText != "" {
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 5.5, tr(f.RecipeText), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("render favorites pdf: %w", err)
	}
	return len(favs), nil
}
