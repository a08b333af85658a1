package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	mediaTypeCSV  = "text/csv"
	mediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mediaTypeXLS  = "application/vnd.ms-excel"
)

// attachmentTypes maps download media types to the extension used when the
// upstream sends no filename.
var attachmentTypes = map[string]string{
	mediaTypeCSV:  "csv",
	mediaTypeXLSX: "xlsx",
	mediaTypeXLS:  "xls",
}

// relayAttachment streams an export back as a download. Workbooks are opened
// first so a truncated file becomes an error instead of a corrupt download.
func relayAttachment(w http.ResponseWriter, resp *upstream.Response) error {
	mt := resp.MediaType()
	if mt == mediaTypeXLSX {
		if err := checkWorkbook(resp.Body); err != nil {
			return err
		}
	}

	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = fmt.Sprintf(`attachment; filename="export.%s"`, attachmentTypes[mt])
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mt
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, err := w.Write(resp.Body)
	if err != nil {
		log.Err(err).Msg("attachment write failed")
	}
	return nil
}

func checkWorkbook(data []byte) error {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return bfferrors.Wrapf(bfferrors.ErrCorruptAttachment, "open workbook (%d bytes): %v", len(data), err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return bfferrors.Wrapf(bfferrors.ErrCorruptAttachment, "workbook has no sheets")
	}
	log.Debug().Strs("sheets", sheets).Int("bytes", len(data)).Msg("relaying workbook")
	return nil
}
