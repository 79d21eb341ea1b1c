package documents

import "time"

// DocumentResponse is the API representation of a document.
type DocumentResponse struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"owner_id"`
	DocType         string            `json:"doc_type"`
	Content         string            `json:"content"`
	Metadata        map[string]string `json:"metadata"`
	FileName        string            `json:"file_name,omitempty"`
	MimeType        string            `json:"mime_type,omitempty"`
	StorageProvider string            `json:"storage_provider,omitempty"`
	StorageKey      string            `json:"storage_key,omitempty"`
	ChunkIDs        []string          `json:"chunk_ids,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toResponse(doc Document, chunkIDs []string) DocumentResponse {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return DocumentResponse{
		ID:              doc.ID,
		OwnerID:         doc.OwnerID,
		DocType:         doc.DocType,
		Content:         doc.Content,
		Metadata:        metadata,
		FileName:        doc.FileName,
		MimeType:        doc.MimeType,
		StorageProvider: doc.StorageProvider,
		StorageKey:      doc.StorageKey,
		ChunkIDs:        chunkIDs,
		CreatedAt:       doc.CreatedAt,
	}
}
