package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"briefcase/internal/crypto"
	"briefcase/internal/http/middleware"
	"briefcase/internal/service"
)

// UploadDocument accepts a multipart upload (field name: file) addressed to a
// recipient, with optional view_limit and expires_at policy fields.
func UploadDocument(svc service.ExchangeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		in := service.UploadInput{
			Filename:    fh.Filename,
			MimeType:    fh.Header.Get("Content-Type"),
			SenderID:    middleware.UserIDFromCtx(c),
			RecipientID: c.FormValue("recipient_id"),
		}
		if in.MimeType == "" {
			in.MimeType = "application/octet-stream"
		}

		if v := c.FormValue("view_limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_VIEW_LIMIT", "view_limit must be a positive integer")
			}
			in.ViewLimit = &limit
		}
		if v := c.FormValue("expires_at"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRES_AT", "expires_at must be an RFC 3339 timestamp")
			}
			in.ExpiresAt = &ts
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), f, in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRecipientRequired):
				return writeError(c, fiber.StatusBadRequest, "RECIPIENT_REQUIRED", "recipient_id is required")
			case errors.Is(err, service.ErrSelfSend):
				return writeError(c, fiber.StatusBadRequest, "SELF_SEND", "cannot send a document to yourself")
			case errors.Is(err, service.ErrRecipientNotFound):
				return writeError(c, fiber.StatusNotFound, "RECIPIENT_NOT_FOUND", "recipient user not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// DownloadDocument streams the decrypted payload to an authorized party.
// Recipient reads count against the view limit and may destroy the document;
// the response reports that via the X-Document-Destroyed header.
func DownloadDocument(svc service.ExchangeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := svc.Download(c.UserContext(), id, middleware.UserIDFromCtx(c))
		if err != nil {
			var denied *service.AccessDeniedError
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			case errors.As(err, &denied):
				return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", denied.Reason)
			case errors.Is(err, crypto.ErrIntegrity):
				return writeError(c, fiber.StatusInternalServerError, "INTEGRITY_ERROR", "document is corrupted or has been tampered with")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
		c.Set(fiber.HeaderContentType, res.MimeType)
		c.Set("X-Document-Destroyed", strconv.FormatBool(res.Destroyed))
		return c.Send(res.Content)
	}
}

// GetDocument returns a document's metadata to one of its parties.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if !doc.IsParty(middleware.UserIDFromCtx(c)) {
			return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", service.ReasonNotParticipant)
		}
		return c.JSON(doc)
	}
}

// ListSentDocuments returns documents the caller has sent.
func ListSentDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListSent(c.UserContext(), middleware.UserIDFromCtx(c))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(docs)
	}
}

// ListReceivedDocuments returns documents addressed to the caller.
func ListReceivedDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListReceived(c.UserContext(), middleware.UserIDFromCtx(c))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(docs)
	}
}

// DeleteDocument destroys a document at the sender's request.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.Delete(c.UserContext(), id, middleware.UserIDFromCtx(c)); err != nil {
			var denied *service.AccessDeniedError
			if errors.As(err, &denied) {
				return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", denied.Reason)
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
