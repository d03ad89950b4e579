package documents

import "github.com/JaimeStill/shelf/pkg/openapi"

type spec struct {
	Upload  *openapi.Operation
	View    *openapi.Operation
	Delete  *openapi.Operation
	List    *openapi.Operation
	Find    *openapi.Operation
	Schemas map[string]*openapi.Schema
}

// Spec documents the document routes and the schemas they reference.
var Spec = spec{
	Upload: &openapi.Operation{
		Summary:     "Upload a PDF",
		Description: "Stores the uploaded PDF under a timestamped name. Rejects non-PDF names, oversize payloads, and files that fail structural validation.",
		RequestBody: openapi.RequestBodyMultipart("file", "PDF file to store"),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Stored", "UploadResult"),
			400: openapi.ResponseRef("BadRequest"),
			500: openapi.ResponseRef("InternalError"),
		},
	},
	View: &openapi.Operation{
		Summary:    "View a PDF inline",
		Parameters: []*openapi.Parameter{openapi.PathParam("name", "Stored filename")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("PDF content", "application/pdf"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Delete: &openapi.Operation{
		Summary:    "Delete a PDF",
		Parameters: []*openapi.Parameter{openapi.PathParam("name", "Stored filename")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Deleted", "DeleteResult"),
			404: openapi.ResponseRef("NotFound"),
			500: openapi.ResponseRef("InternalError"),
		},
	},
	List: &openapi.Operation{
		Summary:     "List or search documents",
		Description: "Returns every stored document newest first. With a query parameter, only documents whose filename contains it (case-insensitive).",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("query", "string", "Filename substring", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseArrayJSON("Documents", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			500: openapi.ResponseRef("InternalError"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Get document metadata",
		Parameters: []*openapi.Parameter{openapi.PathParam("name", "Stored filename")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Document", "Document"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Schemas: map[string]*openapi.Schema{
		"Document": {
			Type:     "object",
			Required: []string{"filename", "size_bytes", "uploaded_at", "page_count"},
			Properties: map[string]*openapi.Schema{
				"filename":    {Type: "string", Example: "20260301_142233_report.pdf"},
				"size_bytes":  {Type: "integer", Format: "int64"},
				"uploaded_at": {Type: "string", Format: "date-time"},
				"page_count":  {Type: "integer", Description: "0 when the file cannot be parsed"},
			},
		},
		"UploadResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"filename": {Type: "string"},
				"status":   {Type: "string", Example: "success"},
			},
		},
		"DeleteResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"status":  {Type: "string", Example: "success"},
				"message": {Type: "string"},
			},
		},
	},
}
