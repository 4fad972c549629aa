package export

import "fmt"

// Service turns assembled book data into a downloadable PDF.
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// ExportPDF renders the book template and prints it to PDF.
func (s *Service) ExportPDF(data BookData) (*Result, error) {
	html, err := RenderBookHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return exportPDF(html, data)
}
