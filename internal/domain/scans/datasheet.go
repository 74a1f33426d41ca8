package scans

import "time"

// Datasheet is the person record a scan crawls. This service only reads it.
type Datasheet struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	FirstName  string             `gorm:"column:first_name;not null" json:"first_name"`
	MiddleName *string            `gorm:"column:middle_name" json:"middle_name,omitempty"`
	LastName   string             `gorm:"column:last_name;not null" json:"last_name"`
	Age        int                `gorm:"column:age" json:"age"`
	Addresses  []DatasheetAddress `gorm:"foreignKey:DatasheetID;constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Datasheet) TableName() string { return "datasheet" }

type DatasheetAddress struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	DatasheetID uint   `gorm:"column:datasheet_id;not null;index" json:"datasheet_id"`
	Street      string `gorm:"column:street" json:"street"`
	City        string `gorm:"column:city" json:"city"`
	State       string `gorm:"column:state" json:"state"`
	ZipCode     string `gorm:"column:zip_code" json:"zip_code"`
}

func (DatasheetAddress) TableName() string { return "datasheet_address" }

// CrawlTarget is the workflow input: only the fields the site crawlers fill into
// search forms, never the full record.
type CrawlTarget struct {
	ScanID     uint   `json:"scanId"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
}

func (d *Datasheet) CrawlTarget(scanID uint) CrawlTarget {
	t := CrawlTarget{ScanID: scanID}
	if d == nil {
		return t
	}
	t.FirstName = d.FirstName
	t.LastName = d.LastName
	if d.MiddleName != nil {
		t.MiddleName = *d.MiddleName
	}
	if len(d.Addresses) > 0 {
		t.City = d.Addresses[0].City
		t.State = d.Addresses[0].State
	}
	return t
}
