package services

import (
	"math"
	"regexp"
	"strings"

	"tenderalign/config"
)

var (
	wbs6Pattern = regexp.MustCompile(`^[A-Z]\d{3}$`)
	wbs7Pattern = regexp.MustCompile(`^[A-Z]\d{3}[._\-]\d{3}$`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
	alphaOnly   = regexp.MustCompile(`^[A-Z]+$`)
)

// PathSegment is one code+description pair in a WBS path.
type PathSegment struct {
	Code        string
	Description string
}

// WbsPath holds the seven WBS levels of a line item. Index 0 is level 1;
// index 5 is the WBS6 analytic code, index 6 the optional WBS7 sub-code.
type WbsPath [7]PathSegment

// Level returns the segment for a 1-based WBS level.
func (p WbsPath) Level(level int) PathSegment {
	return p[level-1]
}

// Wbs6 returns the analytic-code segment.
func (p WbsPath) Wbs6() PathSegment { return p[5] }

// Wbs7 returns the optional sub-code segment.
func (p WbsPath) Wbs7() PathSegment { return p[6] }

// advance returns a copy of the path with the segment set at the given
// level and every deeper level cleared.
func (p WbsPath) advance(level int, seg PathSegment) WbsPath {
	out := p
	out[level-1] = seg
	for l := level; l < len(out); l++ {
		out[l] = PathSegment{}
	}
	return out
}

// ParsedLineItem is one recovered priced line. Immutable once produced by
// the parser.
type ParsedLineItem struct {
	Ordinal     int
	RowNumber   string
	Code        string
	Description string
	Path        WbsPath
	Unit        string
	Quantity    Optional[float64]
	UnitPrice   Optional[float64]
	Amount      Optional[float64]
	Note        string
	Meta        map[string]string
}

// ProductID returns the recovered product identity, or "" when none.
func (it ParsedLineItem) ProductID() string {
	return it.Meta["product_id"]
}

// metaPriceAdjusted marks an item whose unit price the parser had to repair;
// downstream surfaces it as a price-adjustment notice.
const metaPriceAdjusted = "price_adjusted"

// ColumnMap holds the column indexes recovered from a header row. -1 means
// the column is absent.
type ColumnMap struct {
	RowNumber    int
	Codes        []int
	Descriptions []int
	Unit         int
	Quantity     int
	Price        int
	Amount       int
	Note         int
}

// ColumnProfile is a named mapping of logical columns to exact header
// labels. When supplied it bypasses automatic header detection.
type ColumnProfile struct {
	Name         string   `json:"name"`
	RowNumber    string   `json:"row_number"`
	Codes        []string `json:"codes"`
	Descriptions []string `json:"descriptions"`
	Unit         string   `json:"unit"`
	Quantity     string   `json:"quantity"`
	Price        string   `json:"price"`
}

func emptyColumnMap() ColumnMap {
	return ColumnMap{RowNumber: -1, Unit: -1, Quantity: -1, Price: -1, Amount: -1, Note: -1}
}

// Header token sets. Labels are compared after NormalizeLabel, so accents
// and case are already folded.
var (
	rowNumberTokens = map[string]bool{
		"n": true, "n.": true, "nr": true, "nr.": true, "no": true, "no.": true,
		"num": true, "numero": true, "n. ord.": true, "n.ord.": true, "n. ord": true,
	}
	unitTokens = map[string]bool{
		"um": true, "u.m.": true, "u.m": true, "unita di misura": true,
		"unit": true, "misura": true,
	}
	flattenedLabel = "elenco prezzi"
)

func isCodeHeader(label string) bool {
	return strings.Contains(label, "codice") || label == "cod" || label == "cod." ||
		label == "code" || label == "articolo" || label == "art."
}

func isDescriptionHeader(label string) bool {
	return strings.Contains(label, "descrizione") || strings.Contains(label, "description") ||
		strings.Contains(label, "designazione")
}

func isQuantityHeader(label string) bool {
	return strings.Contains(label, "quantita") || strings.Contains(label, "quantity") ||
		label == "qta" || label == "q.ta" || label == "qty"
}

func isPriceHeader(label string) bool {
	return strings.Contains(label, "prezzo") || strings.Contains(label, "price")
}

func isAmountHeader(label string) bool {
	return strings.Contains(label, "importo") || strings.Contains(label, "amount")
}

func isNoteHeader(label string) bool {
	return label == "note" || label == "nota" || strings.Contains(label, "annotazioni") ||
		strings.Contains(label, "osservazioni")
}

// mapHeaderRow classifies each cell of a candidate header row into a
// ColumnMap. The row qualifies as a header when it has a code column plus a
// description column, or a code column plus at least two of
// quantity/price/amount.
func mapHeaderRow(row []string) (ColumnMap, bool) {
	cm := emptyColumnMap()
	numericCols := 0

	for i, cell := range row {
		label := NormalizeLabel(cell)
		if label == "" {
			continue
		}
		switch {
		case isCodeHeader(label):
			cm.Codes = append(cm.Codes, i)
		case isDescriptionHeader(label):
			cm.Descriptions = append(cm.Descriptions, i)
		case isQuantityHeader(label):
			if cm.Quantity == -1 {
				cm.Quantity = i
				numericCols++
			}
		case isAmountHeader(label):
			if cm.Amount == -1 {
				cm.Amount = i
				numericCols++
			}
		case isPriceHeader(label):
			if cm.Price == -1 {
				cm.Price = i
				numericCols++
			}
		case unitTokens[label]:
			if cm.Unit == -1 {
				cm.Unit = i
			}
		case rowNumberTokens[label]:
			if cm.RowNumber == -1 {
				cm.RowNumber = i
			}
		case isNoteHeader(label):
			if cm.Note == -1 {
				cm.Note = i
			}
		}
	}

	if len(cm.Codes) == 0 {
		return cm, false
	}
	if len(cm.Descriptions) == 0 && numericCols < 2 {
		return cm, false
	}
	return cm, true
}

// maxHeaderScan bounds how deep into the sheet the header may sit; real
// documents carry title/logo rows above it.
const maxHeaderScan = 30

// DetectHeader finds the header row and its column mapping.
func DetectHeader(grid [][]string) (int, ColumnMap, error) {
	limit := len(grid)
	if limit > maxHeaderScan {
		limit = maxHeaderScan
	}
	for i := 0; i < limit; i++ {
		if cm, ok := mapHeaderRow(grid[i]); ok {
			return i, cm, nil
		}
	}
	return 0, emptyColumnMap(), structuralErrorf("no header row recognized in the first %d rows", limit)
}

// mapProfileHeader locates the header row whose cells match the profile's
// labels exactly (after normalization) and builds the ColumnMap from it.
func mapProfileHeader(grid [][]string, profile *ColumnProfile) (int, ColumnMap, error) {
	limit := len(grid)
	if limit > maxHeaderScan {
		limit = maxHeaderScan
	}

	want := map[string]string{}
	addLabel := func(logical, label string) {
		if label != "" {
			want[NormalizeLabel(label)] = logical
		}
	}
	addLabel("row_number", profile.RowNumber)
	for _, l := range profile.Codes {
		addLabel("code", l)
	}
	for _, l := range profile.Descriptions {
		addLabel("description", l)
	}
	addLabel("unit", profile.Unit)
	addLabel("quantity", profile.Quantity)
	addLabel("price", profile.Price)

	for i := 0; i < limit; i++ {
		cm := emptyColumnMap()
		found := 0
		for col, cell := range grid[i] {
			logical, ok := want[NormalizeLabel(cell)]
			if !ok {
				continue
			}
			found++
			switch logical {
			case "row_number":
				cm.RowNumber = col
			case "code":
				cm.Codes = append(cm.Codes, col)
			case "description":
				cm.Descriptions = append(cm.Descriptions, col)
			case "unit":
				cm.Unit = col
			case "quantity":
				cm.Quantity = col
			case "price":
				cm.Price = col
			}
		}
		if found == len(want) && len(want) > 0 {
			return i, cm, nil
		}
	}
	return 0, emptyColumnMap(), structuralErrorf("column profile %q matched no header row", profile.Name)
}

type rowKind int

const (
	rowContinuation rowKind = iota
	rowSection
	rowItem
	rowTotal
)

func isTotalLabel(s string) bool {
	label := NormalizeLabel(s)
	return label == "totale" || label == "total" ||
		strings.HasPrefix(label, "totale ") || strings.HasPrefix(label, "total ") ||
		strings.HasPrefix(label, "sommano")
}

// classifyRow decides what one data row is. Pure function: path state is
// handled by the caller through WbsPath.advance.
func classifyRow(cm ColumnMap, row []string) rowKind {
	code := firstNonEmpty(row, cm.Codes)
	desc := firstNonEmpty(row, cm.Descriptions)
	rowNum := cellAt(row, cm.RowNumber)

	if isTotalLabel(code) || isTotalLabel(desc) {
		return rowTotal
	}

	if cm.RowNumber >= 0 {
		if rowNum == "" && code != "" && desc != "" {
			return rowSection
		}
		if rowNum != "" && (code != "" || desc != "") {
			return rowItem
		}
		return rowContinuation
	}

	// No row-number column: a section carries code+description but none of
	// the numeric fields.
	hasNumbers := cellAt(row, cm.Quantity) != "" || cellAt(row, cm.Price) != "" ||
		cellAt(row, cm.Amount) != ""
	if code != "" && desc != "" && !hasNumbers {
		return rowSection
	}
	if code != "" || desc != "" {
		return rowItem
	}
	return rowContinuation
}

func firstNonEmpty(row []string, cols []int) string {
	for _, c := range cols {
		if v := cellAt(row, c); v != "" {
			return v
		}
	}
	return ""
}

// inferLevel derives the WBS level a section code addresses from its shape.
func inferLevel(code string) int {
	switch {
	case code == "":
		return 0
	case digitsOnly.MatchString(code):
		return 1
	case len(code) == 1 && alphaOnly.MatchString(code):
		return 2
	case wbs7Pattern.MatchString(code):
		return 7
	case wbs6Pattern.MatchString(code):
		return 6
	case alphaOnly.MatchString(code):
		switch len(code) {
		case 2:
			return 3
		case 3:
			return 4
		default:
			return 5
		}
	default:
		return 5
	}
}

// ParsedDocument is the full parser output: the recovered line items plus
// the document-declared grand total, when one was found.
type ParsedDocument struct {
	Items         []ParsedLineItem
	DeclaredTotal Optional[float64]
}

// ParseDocument recovers the priced line items, their WBS paths and any
// declared grand total from a raw cell grid. A ColumnProfile, when given,
// bypasses header detection.
func ParseDocument(grid [][]string, cfg *config.Config, profile *ColumnProfile) (*ParsedDocument, error) {
	var headerIdx int
	var cm ColumnMap
	var err error
	if profile != nil {
		// An explicit profile bypasses all automatic detection, the
		// flattened-format check included.
		headerIdx, cm, err = mapProfileHeader(grid, profile)
	} else {
		if flatHeaderIdx, fm, ok := detectFlattened(grid); ok {
			return &ParsedDocument{Items: parseFlattened(grid, flatHeaderIdx, fm)}, nil
		}
		headerIdx, cm, err = DetectHeader(grid)
	}
	if err != nil {
		return nil, err
	}

	doc := &ParsedDocument{}
	path := WbsPath{}

	i := headerIdx + 1
	for i < len(grid) {
		row := grid[i]
		switch classifyRow(cm, row) {
		case rowSection:
			code := NormalizeCode(firstNonEmpty(row, cm.Codes))
			desc := CleanText(firstNonEmpty(row, cm.Descriptions))
			if level := inferLevel(code); level > 0 {
				path = path.advance(level, PathSegment{Code: code, Description: desc})
			}
			i++
		case rowItem:
			item, next := collectItem(grid, i, cm, path, len(doc.Items))
			deriveItemMoney(&item, cfg.Parser.ImplausibleUnitPrice)
			doc.Items = append(doc.Items, item)
			i = next
		case rowTotal:
			// The last document-level total seen is the declared grand total.
			if v, ok := ParseNumber(cellAt(row, cm.Amount)); ok {
				doc.DeclaredTotal = Some(v)
			}
			i++
		default:
			i++
		}
	}

	return doc, nil
}

// ParseLineItems is ParseDocument without the declared-total bookkeeping.
func ParseLineItems(grid [][]string, cfg *config.Config, profile *ColumnProfile) ([]ParsedLineItem, error) {
	doc, err := ParseDocument(grid, cfg, profile)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// collectItem builds one item starting at row start, scanning forward
// through measure-continuation rows. Templates wrap an item's data across
// rows, so the last non-empty value wins for each field. Returns the item
// and the index of the first row not consumed.
func collectItem(grid [][]string, start int, cm ColumnMap, path WbsPath, ordinal int) (ParsedLineItem, int) {
	row := grid[start]

	item := ParsedLineItem{
		Ordinal:     ordinal,
		RowNumber:   cellAt(row, cm.RowNumber),
		Code:        NormalizeCode(firstNonEmpty(row, cm.Codes)),
		Description: CleanText(firstNonEmpty(row, cm.Descriptions)),
		Unit:        cellAt(row, cm.Unit),
		Note:        CleanText(cellAt(row, cm.Note)),
		Meta:        map[string]string{"parser": "structured"},
	}
	readMoneyCells(&item, row, cm)

	next := start + 1
	for next < len(grid) {
		cont := grid[next]
		// A total row ends the item but stays unconsumed: the main loop
		// records it, and the last total seen becomes the declared total.
		if classifyRow(cm, cont) != rowContinuation {
			break
		}
		if u := cellAt(cont, cm.Unit); u != "" {
			item.Unit = u
		}
		if n := CleanText(cellAt(cont, cm.Note)); n != "" {
			item.Note = n
		}
		readMoneyCells(&item, cont, cm)
		next++
	}

	item.Path = refinePathFromItemCode(path, item.Code)
	if item.Code != "" {
		item.Meta["product_id"] = item.Code
	}
	return item, next
}

func readMoneyCells(item *ParsedLineItem, row []string, cm ColumnMap) {
	if v, ok := ParseNumber(cellAt(row, cm.Quantity)); ok {
		item.Quantity = Some(v)
	}
	if v, ok := ParseNumber(cellAt(row, cm.Price)); ok {
		item.UnitPrice = Some(v)
	}
	if v, ok := ParseNumber(cellAt(row, cm.Amount)); ok {
		item.Amount = Some(v)
	}
}

// refinePathFromItemCode fills WBS6/WBS7 slots the section rows left empty
// when the item's own code carries them.
func refinePathFromItemCode(path WbsPath, code string) WbsPath {
	switch {
	case wbs7Pattern.MatchString(code) && path.Wbs7().Code == "":
		path[6] = PathSegment{Code: code}
		if path.Wbs6().Code == "" {
			path[5] = PathSegment{Code: splitCodeHead(code)}
		}
	case wbs6Pattern.MatchString(code) && path.Wbs6().Code == "":
		path[5] = PathSegment{Code: code}
	}
	return path
}

// deriveItemMoney fills in a missing price or amount from the other two
// fields, guarding against swapped price/amount source columns.
func deriveItemMoney(item *ParsedLineItem, implausiblePrice float64) {
	qty, qok := item.Quantity.Value()
	if !qok || qty == 0 {
		return
	}
	price, pok := item.UnitPrice.Value()
	amount, aok := item.Amount.Value()

	switch {
	case pok && !aok:
		item.Amount = Some(RoundAmount(price * qty))
	case aok && !pok:
		derived := amount / qty
		if math.Abs(derived) > implausiblePrice {
			// The amount cell held the unit price. Recompute from the swap.
			p := RoundUnitPrice(amount)
			item.UnitPrice = Some(p)
			item.Amount = Some(RoundAmount(p * qty))
			if item.Meta == nil {
				item.Meta = map[string]string{}
			}
			item.Meta[metaPriceAdjusted] = "unit price recovered from swapped price/amount columns"
		} else {
			item.UnitPrice = Some(RoundUnitPrice(derived))
		}
	}
}

// ── Flattened price-list format ──────────────────────────────────────────

type flattenedMap struct {
	Category    int
	Subcategory int
	Code        int
	Description int
	Unit        int
	Price       int
}

// detectFlattened recognizes the simpler price-list layout by its fixed
// header label and maps its columns.
func detectFlattened(grid [][]string) (int, flattenedMap, bool) {
	limit := len(grid)
	if limit > maxHeaderScan {
		limit = maxHeaderScan
	}
	labelSeen := false
	for i := 0; i < limit; i++ {
		for _, cell := range grid[i] {
			if strings.HasPrefix(NormalizeLabel(cell), flattenedLabel) {
				labelSeen = true
			}
		}
		if !labelSeen {
			continue
		}
		fm := flattenedMap{Category: -1, Subcategory: -1, Code: -1, Description: -1, Unit: -1, Price: -1}
		for col, cell := range grid[i] {
			label := NormalizeLabel(cell)
			switch {
			case strings.HasPrefix(label, "sottocategoria") || strings.HasPrefix(label, "sotto categoria"):
				fm.Subcategory = col
			case strings.HasPrefix(label, "categoria"):
				fm.Category = col
			case isCodeHeader(label):
				fm.Code = col
			case isDescriptionHeader(label):
				fm.Description = col
			case unitTokens[label]:
				fm.Unit = col
			case isPriceHeader(label):
				fm.Price = col
			}
		}
		if fm.Code >= 0 && fm.Description >= 0 && fm.Price >= 0 {
			return i, fm, true
		}
	}
	return 0, flattenedMap{}, false
}

// parseFlattened maps category/subcategory columns into WBS levels 5 and 6,
// never deeper.
func parseFlattened(grid [][]string, headerIdx int, fm flattenedMap) []ParsedLineItem {
	var items []ParsedLineItem
	for i := headerIdx + 1; i < len(grid); i++ {
		row := grid[i]
		code := NormalizeCode(cellAt(row, fm.Code))
		desc := CleanText(cellAt(row, fm.Description))
		if code == "" && desc == "" {
			continue
		}
		if isTotalLabel(code) || isTotalLabel(desc) {
			continue
		}

		var path WbsPath
		if seg := splitLabelCell(cellAt(row, fm.Category)); seg.Code != "" {
			path[4] = seg
		}
		if seg := splitLabelCell(cellAt(row, fm.Subcategory)); seg.Code != "" {
			path[5] = seg
		}

		item := ParsedLineItem{
			Ordinal:     len(items),
			Code:        code,
			Description: desc,
			Path:        path,
			Unit:        cellAt(row, fm.Unit),
			Meta:        map[string]string{"parser": "flattened"},
		}
		if v, ok := ParseNumber(cellAt(row, fm.Price)); ok {
			item.UnitPrice = Some(RoundUnitPrice(v))
		}
		if code != "" {
			item.Meta["product_id"] = code
		}
		items = append(items, item)
	}
	return items
}

// splitLabelCell parses a "CODE - Description" cell into a segment. A cell
// without the separator is treated as a bare code.
func splitLabelCell(cell string) PathSegment {
	cell = CleanText(cell)
	if cell == "" {
		return PathSegment{}
	}
	if idx := strings.Index(cell, " - "); idx > 0 {
		return PathSegment{
			Code:        NormalizeCode(cell[:idx]),
			Description: CleanText(cell[idx+3:]),
		}
	}
	return PathSegment{Code: NormalizeCode(cell)}
}
