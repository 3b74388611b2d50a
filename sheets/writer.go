package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"mars-scraper/models"

	"github.com/charmbracelet/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer handles writing scrape results to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer.
// spreadsheet may be a full Sheets URL or a bare spreadsheet ID.
func NewWriter(ctx context.Context, spreadsheet string, credentialsPath string) (*Writer, error) {
	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		log.Debug("reading credentials from GOOGLE_SHEETS_CREDENTIALS", "bytes", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	if err := validateCredentials(credsJSON); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	spreadsheetID := ExtractSpreadsheetID(spreadsheet)
	if spreadsheetID == "" {
		spreadsheetID = strings.TrimSpace(spreadsheet)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// validateCredentials checks that credsJSON is a service account key
func validateCredentials(credsJSON []byte) error {
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return nil
}

// Store implements store.Store: every run gets its own sheet
func (w *Writer) Store(ctx context.Context, results *models.Results) error {
	sheetName := "Mars_" + results.ScrapedAt.Format("20060102_150405")
	_, _, err := w.CreateSheetAndWriteResults(ctx, sheetName, results)
	return err
}

// CreateSheetAndWriteResults creates a new sheet at the front of the spreadsheet
// and writes the results to it. Returns the sheet name and sheet ID (gid).
func (w *Writer) CreateSheetAndWriteResults(ctx context.Context, sheetName string, results *models.Results) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)
	if len(sheetName) > 100 {
		sheetName = sheetName[:100]
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}
	log.Debug("created sheet", "name", sheetName, "id", sheetID)

	valueRange := &sheets.ValueRange{
		Values: resultRows(results),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("%s!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	log.Info("wrote results to Google Sheets", "sheet", sheetName, "url", SheetURL(w.spreadsheetID, sheetID))
	return sheetName, sheetID, nil
}

// resultRows lays results out as blocks separated by empty rows
func resultRows(results *models.Results) [][]interface{} {
	values := [][]interface{}{
		{"Scraped At", results.ScrapedAt.Format("2006-01-02 15:04:05 MST")},
		{},
		{"News Title", results.News.Title},
		{"News Paragraph", results.News.Summary},
		{"Featured Image", results.Image.URL},
		{},
		{"Parameter", "Values"},
	}
	for _, f := range results.Facts.Rows {
		values = append(values, []interface{}{f.Parameter, f.Value})
	}
	values = append(values, []interface{}{}, []interface{}{"Hemisphere", "Image URL"})
	for _, h := range results.Hemispheres {
		values = append(values, []interface{}{h.Title, h.ImageURL})
	}
	return values
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// SheetURL returns a link that opens sheet gid of the spreadsheet
func SheetURL(spreadsheetID string, sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", spreadsheetID, sheetID)
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
