package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate describes a course completion certificate.
type Certificate struct {
	StudentName    string
	CourseTitle    string
	InstructorName string
	CompletedAt    time.Time
}

// CertificateRenderer renders completion certificates as PDF documents.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces a landscape A4 certificate.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.StudentName == "" || cert.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student and course names")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 16, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, cert.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 17)
	pdf.CellFormat(0, 10, cert.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "I", 11)
	if cert.InstructorName != "" {
		pdf.CellFormat(0, 7, "Instructor: "+cert.InstructorName, "", 1, "C", false, 0, "")
	}
	completed := cert.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	pdf.CellFormat(0, 7, completed.Format("January 2, 2006"), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
