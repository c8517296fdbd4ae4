// Package present renders listing search results as text.
package present

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"realty/catalog/internal/models"
)

// View selects how a page of results is laid out.
type View string

const (
	ViewGrid View = "grid"
	ViewList View = "list"
)

// ParseView returns the view named by s, defaulting to grid.
func ParseView(s string) View {
	if View(strings.ToLower(strings.TrimSpace(s))) == ViewList {
		return ViewList
	}
	return ViewGrid
}

const (
	MsgEmpty = "По вашему запросу ничего не найдено. Попробуйте сбросить фильтры."
	MsgError = "Не удалось загрузить объекты. Попробуйте ещё раз."
)

var (
	dealLabels = map[models.DealType]string{
		models.DealSale: "Продажа",
		models.DealRent: "Аренда",
	}
	categoryLabels = map[models.Category]string{
		models.CategoryApartment:  "Квартира",
		models.CategoryHouse:      "Дом",
		models.CategoryCommercial: "Коммерческая",
		models.CategoryLand:       "Участок",
	}
)

// Renderer writes listings to w using locale-aware number formatting.
type Renderer struct {
	w io.Writer
	p *message.Printer
}

// NewRenderer creates a Renderer. The zero language tag selects Russian.
func NewRenderer(w io.Writer, lang language.Tag) *Renderer {
	if lang == language.Und {
		lang = language.Russian
	}
	return &Renderer{w: w, p: message.NewPrinter(lang)}
}

// Price formats a listing price, with a monthly suffix for rentals.
func (r *Renderer) Price(l models.Listing) string {
	s := r.p.Sprintf("%.0f ₽", l.Price)
	if l.DealType == models.DealRent {
		s += "/мес"
	}
	return s
}

// Area formats an area in square meters.
func (r *Renderer) Area(area float64) string {
	return r.p.Sprintf("%.1f м²", area)
}

func rooms(l models.Listing) string {
	switch {
	case l.Category == models.CategoryLand:
		return "-"
	case l.Rooms == 0:
		return "студия"
	default:
		return fmt.Sprintf("%d-комн.", l.Rooms)
	}
}

func floor(l models.Listing) string {
	switch {
	case l.Floor != nil && l.TotalFloors != nil:
		return fmt.Sprintf("%d/%d эт.", *l.Floor, *l.TotalFloors)
	case l.Floor != nil:
		return fmt.Sprintf("%d эт.", *l.Floor)
	}
	return ""
}

func address(a models.Address) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.City, a.District, a.Street} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	s := strings.Join(parts, ", ")
	if a.Metro != "" {
		s += " (м. " + a.Metro + ")"
	}
	return s
}

// Render writes a search outcome. A failed fetch and an empty result get
// distinct messages; otherwise the page is laid out per view and followed by
// a pagination footer.
func (r *Renderer) Render(view View, page *models.ListingPage, fetchErr error) error {
	if fetchErr != nil {
		_, err := fmt.Fprintln(r.w, MsgError)
		return err
	}
	if page == nil || len(page.Items) == 0 {
		if _, err := fmt.Fprintln(r.w, MsgEmpty); err != nil {
			return err
		}
		if page != nil && page.Pagination.TotalItems > 0 {
			// Past the last page of a non-empty result set.
			return r.footer(page.Pagination)
		}
		return nil
	}

	var err error
	if view == ViewList {
		err = r.list(page.Items)
	} else {
		err = r.grid(page.Items)
	}
	if err != nil {
		return err
	}
	return r.footer(page.Pagination)
}

// Listings writes items in the given view without a footer.
func (r *Renderer) Listings(view View, items []models.Listing) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(r.w, MsgEmpty)
		return err
	}
	if view == ViewList {
		return r.list(items)
	}
	return r.grid(items)
}

func (r *Renderer) grid(items []models.Listing) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tОбъект\tЦена\tПлощадь\tКомнаты\tГород")
	for _, l := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID.Hex(), l.Title, r.Price(l), r.Area(l.Area), rooms(l), l.Address.City)
	}
	return tw.Flush()
}

func (r *Renderer) list(items []models.Listing) error {
	var b strings.Builder
	for i, l := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s · %s\n", l.Title, r.Price(l))
		fmt.Fprintf(&b, "  %s, %s · %s · %s", dealLabels[l.DealType], categoryLabels[l.Category], r.Area(l.Area), rooms(l))
		if f := floor(l); f != "" {
			fmt.Fprintf(&b, " · %s", f)
		}
		b.WriteString("\n")
		if a := address(l.Address); a != "" {
			fmt.Fprintf(&b, "  %s\n", a)
		}
		if len(l.Features) > 0 {
			fmt.Fprintf(&b, "  %s\n", strings.Join(l.Features, ", "))
		}
		fmt.Fprintf(&b, "  id: %s\n", l.ID.Hex())
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) footer(p models.Pagination) error {
	_, err := r.p.Fprintf(r.w, "\nСтраница %d из %d · найдено %d\n", p.CurrentPage, max(p.TotalPages, 1), p.TotalItems)
	return err
}

// Detail writes every field of a single listing.
func (r *Renderer) Detail(l models.Listing, imageURL func(key string) string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", l.Title, r.Price(l))
	fmt.Fprintf(&b, "Тип:       %s, %s\n", dealLabels[l.DealType], categoryLabels[l.Category])
	fmt.Fprintf(&b, "Площадь:   %s", r.Area(l.Area))
	if l.PricePerMeter > 0 {
		fmt.Fprintf(&b, " (%s за м²)", r.p.Sprintf("%.0f ₽", l.PricePerMeter))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Комнаты:   %s\n", rooms(l))
	if f := floor(l); f != "" {
		fmt.Fprintf(&b, "Этаж:      %s\n", f)
	}
	if l.YearBuilt != nil {
		fmt.Fprintf(&b, "Год:       %d\n", *l.YearBuilt)
	}
	if a := address(l.Address); a != "" {
		fmt.Fprintf(&b, "Адрес:     %s\n", a)
	}
	if len(l.Features) > 0 {
		fmt.Fprintf(&b, "Удобства:  %s\n", strings.Join(l.Features, ", "))
	}
	fmt.Fprintf(&b, "Контакт:   %s, %s", l.Contact.Name, l.Contact.Phone)
	if l.Contact.Email != "" {
		fmt.Fprintf(&b, ", %s", l.Contact.Email)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Статус:    %s\n", l.Status)
	if l.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", l.Description)
	}
	for _, key := range l.Images {
		if imageURL != nil {
			key = imageURL(key)
		}
		fmt.Fprintf(&b, "  %s\n", key)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}
