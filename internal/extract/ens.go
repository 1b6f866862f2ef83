package extract

import (
	"github.com/feral-file/castindex/internal/domain"
	"github.com/feral-file/castindex/internal/providers/ensdata"
)

// Ens maps the resolution of address. A nil record yields an empty record, which the merge skips.
func Ens(address string, record *ensdata.Record) domain.EnsRecord {
	rec := domain.EnsRecord{Address: domain.NormalizeAddress(address)}
	if record == nil {
		return rec
	}

	rec.Ens = nonEmpty(record.Ens)
	rec.URL = nonEmpty(record.URL)
	rec.Github = nonEmpty(record.Github)
	rec.Twitter = nonEmpty(record.Twitter)
	rec.Telegram = nonEmpty(record.Telegram)
	rec.Email = nonEmpty(record.Email)
	rec.Discord = nonEmpty(record.Discord)
	if len(record.Raw) > 0 {
		rec.Raw = []byte(record.Raw)
	}

	return rec
}
