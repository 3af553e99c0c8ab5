package fields

import (
	"encoding/json"
	"fmt"
)

// Thumbnail — миниатюра вложения.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Thumbnails — набор миниатюр, который сервер строит для изображений.
type Thumbnails struct {
	Small *Thumbnail `json:"small,omitempty"`
	Large *Thumbnail `json:"large,omitempty"`
	Full  *Thumbnail `json:"full,omitempty"`
}

// Attachment — файл, прикреплённый к записи. Поля заполняются сервером.
type Attachment struct {
	ID         string      `json:"id,omitempty"`
	URL        string      `json:"url"`
	Filename   string      `json:"filename,omitempty"`
	Size       int64       `json:"size,omitempty"`
	Type       string      `json:"type,omitempty"`
	Width      int         `json:"width,omitempty"`
	Height     int         `json:"height,omitempty"`
	Thumbnails *Thumbnails `json:"thumbnails,omitempty"`
}

// AttachmentField — поле вложений. Пустое значение — nil-срез.
// Новые вложения отправляются как {url, filename}; сервер скачивает
// файл сам и заполняет остальные поля.
type AttachmentField struct{}

func (AttachmentField) Decode(raw any) (any, error) {
	if raw == nil {
		return []Attachment(nil), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("fields: bad attachment payload: %w", err)
	}
	var out []Attachment
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("fields: bad attachment payload: %w", err)
	}
	return out, nil
}

func (AttachmentField) Encode(value any) (any, error) {
	atts, _ := value.([]Attachment)
	if len(atts) == 0 {
		return nil, nil
	}
	out := make([]map[string]any, 0, len(atts))
	for _, a := range atts {
		item := map[string]any{"url": a.URL}
		if a.ID != "" {
			item["id"] = a.ID
		}
		if a.Filename != "" {
			item["filename"] = a.Filename
		}
		out = append(out, item)
	}
	return out, nil
}

func (AttachmentField) Empty() any { return []Attachment(nil) }

func (AttachmentField) Clone(value any) any {
	atts, ok := value.([]Attachment)
	if !ok || atts == nil {
		return value
	}
	cp := make([]Attachment, len(atts))
	copy(cp, atts)
	return cp
}

func (AttachmentField) Equal(a, b any) bool {
	as, aok := a.([]Attachment)
	bs, bok := b.([]Attachment)
	if !aok || !bok {
		return a == b
	}
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].ID != bs[i].ID || as[i].URL != bs[i].URL || as[i].Filename != bs[i].Filename {
			return false
		}
	}
	return true
}
