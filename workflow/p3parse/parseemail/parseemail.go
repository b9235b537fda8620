// Package parseemail implements the `email` coarse-type leaf action:
// email_extract_and_scan. Header parsing and UTC-naive date
// normalization follow original_source's parse_email.py (Supplemented
// Feature, SPEC_FULL.md §10).
package parseemail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
	"github.com/liquidinvestigations/hoover4/pkg/scratch"
	"github.com/liquidinvestigations/hoover4/pkg/textchunk"
	"github.com/liquidinvestigations/hoover4/pkg/wfid"
	"github.com/liquidinvestigations/hoover4/workflow/p0scan"
)

// Activities bundles the columnar store dependency.
type Activities struct {
	CH  *chstore.Store
	Log *zap.Logger
}

// Input drives the workflow.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// ParseHeadersInput/Output for the header+text activity.
type ParseHeadersInput struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

// ExtractAttachmentsOutput reports where attachments were written.
type ExtractAttachmentsOutput struct {
	OutDir string
}

// ParseHeaders parses the .eml, persists the container marker and header
// summary, and chunks the message body, as read after the header block,
// into text_content rows. MIME parts are not split out and transfer
// encodings are not decoded, so a multipart body is stored with every
// part and its boundary lines.
func (a *Activities) ParseHeaders(ctx context.Context, in ParseHeadersInput) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return fmt.Errorf("parseemail: parse message: %w", err)
	}

	headersJSON, _ := json.Marshal(msg.Header)
	subject := msg.Header.Get("Subject")

	var addrParts []string
	for _, h := range []string{"From", "To", "Cc", "Bcc"} {
		if v := msg.Header.Get(h); v != "" {
			addrParts = append(addrParts, h+": "+v)
		}
	}

	dateSent := parseDateUTCNaiveOrEpoch(msg.Header.Get("Date"))

	if err := a.CH.InsertContainerMarker(ctx, model.ContainerMarker{
		Dataset: in.Dataset, Hash: hash, Kind: model.ContainerEmail,
	}); err != nil {
		return err
	}
	if err := a.CH.InsertEmailHeaders(ctx, model.EmailHeaders{
		Dataset: in.Dataset, EmailHash: hash,
		RawHeadersJSON: string(headersJSON), Subject: subject,
		Addresses: strings.Join(addrParts, "; "), DateSent: dateSent,
	}); err != nil {
		return err
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil // body read failure is non-fatal; headers already persisted.
	}
	_, err = textchunk.InsertChunks(ctx, a.CH, in.Dataset, hash, model.ExtractedByEmail, body, 0)
	return err
}

// parseDateUTCNaiveOrEpoch mirrors the source's fallback: an unparsable
// or missing Date header becomes the Unix epoch rather than NULL, since
// the columnar store's DateTime column is non-nullable.
func parseDateUTCNaiveOrEpoch(header string) time.Time {
	if header == "" {
		return time.Unix(0, 0).UTC()
	}
	t, err := mail.ParseDate(header)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

// ExtractAttachments writes every MIME attachment part to a temp dir for
// P0 re-entry. A part counts as an attachment if it carries a filename or
// a Content-Disposition: attachment header, mirroring parse_email.py's
// msg.walk() loop; inline text/plain parts are skipped (ParseHeaders
// stores them only as part of the raw body).
func (a *Activities) ExtractAttachments(ctx context.Context, in ParseHeadersInput) (ExtractAttachmentsOutput, error) {
	outDir := scratch.ContainerDir(in.Dataset, "email", in.ItemHash)
	if err := scratch.Ensure(outDir); err != nil {
		return ExtractAttachmentsOutput{}, err
	}

	f, err := os.Open(in.LocalPath)
	if err != nil {
		return ExtractAttachmentsOutput{}, err
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return ExtractAttachmentsOutput{}, err
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return ExtractAttachmentsOutput{OutDir: outDir}, nil
	}

	index := 0
	mr := multipart.NewReader(msg.Body, params["boundary"])
	if err := extractParts(mr, outDir, &index); err != nil {
		return ExtractAttachmentsOutput{}, err
	}

	return ExtractAttachmentsOutput{OutDir: outDir}, nil
}

// extractParts walks mr's parts, recursing into any nested multipart
// part and writing every attachment part (filename or
// Content-Disposition: attachment) to outDir. Non-attachment parts
// (e.g. the inline text/plain body) are skipped.
func extractParts(mr *multipart.Reader, outDir string, index *int) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parseemail: reading part: %w", err)
		}

		partMediaType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err == nil && strings.HasPrefix(partMediaType, "multipart/") {
			if err := extractParts(multipart.NewReader(part, partParams["boundary"]), outDir, index); err != nil {
				return err
			}
			continue
		}

		filename := part.FileName()
		disposition := strings.ToLower(part.Header.Get("Content-Disposition"))
		if !strings.Contains(disposition, "attachment") && filename == "" {
			continue
		}
		if filename == "" {
			*index++
			filename = fmt.Sprintf("attachment_%d", *index)
		}

		if err := writeAttachmentPart(filepath.Join(outDir, sanitizeAttachmentName(filename)), part); err != nil {
			continue // best-effort: skip a part that fails to decode/write.
		}
	}
}

// sanitizeAttachmentName replaces path separators so an attacker-controlled
// filename can never escape outDir.
func sanitizeAttachmentName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, "\\", "_")
}

// writeAttachmentPart decodes part's Content-Transfer-Encoding (base64 or
// quoted-printable; anything else is copied raw, matching net/mail's own
// "leave it to the caller" stance) and writes it to path.
func writeAttachmentPart(path string, part *multipart.Part) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	var r io.Reader = part
	switch strings.ToLower(part.Header.Get("Content-Transfer-Encoding")) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, part)
	case "quoted-printable":
		r = quotedprintable.NewReader(part)
	}
	_, err = io.Copy(out, r)
	return err
}

// Cleanup removes the attachment extraction scratch directory.
func (a *Activities) Cleanup(ctx context.Context, dir string) error {
	if err := scratch.Cleanup(dir); err != nil {
		a.Log.Warn("parseemail: cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
	return nil
}

// ExtractAndScan is email_extract_and_scan: parse headers/text, extract
// attachments, recurse into P0, cleanup.
func ExtractAndScan(ctx workflow.Context, in Input) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	headersIn := ParseHeadersInput{Dataset: in.Dataset, ItemHash: in.ItemHash, LocalPath: in.LocalPath}
	if err := workflow.ExecuteActivity(actx, (*Activities).ParseHeaders, headersIn).Get(ctx, nil); err != nil {
		return err
	}

	var extracted ExtractAttachmentsOutput
	if err := workflow.ExecuteActivity(actx, (*Activities).ExtractAttachments, headersIn).Get(ctx, &extracted); err != nil {
		return err
	}

	scanArgs := p0scan.Input{
		Dataset:        in.Dataset,
		DatasetPath:    extracted.OutDir,
		FolderPaths:    []string{"/"},
		ContainerHash:  in.ItemHash,
		RootPathPrefix: "",
	}
	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: wfid.Of("p0scan-email", scanArgs),
	})
	if err := workflow.ExecuteChildWorkflow(cctx, p0scan.ScanDirectory, scanArgs).Get(ctx, nil); err != nil {
		return err
	}

	return workflow.ExecuteActivity(actx, (*Activities).Cleanup, extracted.OutDir).Get(ctx, nil)
}
