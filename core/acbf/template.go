package acbf

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/acbf/core/encoding"
	acbfxml "github.com/FocuswithJustin/acbf/core/xml"
)

// templateVersion is the document-info version of new books.
const templateVersion = "1.0"

// newBookXML returns the smallest valid ACBF 1.1 document: an empty title,
// an empty cover image reference and no pages.
func newBookXML(now time.Time) []byte {
	date := now.Format(isoDate)
	return []byte(fmt.Sprintf(`%s
<ACBF xmlns="%s">
  <meta-data>
    <book-info>
      <book-title></book-title>
      <coverpage>
        <image href=""/>
      </coverpage>
    </book-info>
    <publish-info>
      <publisher></publisher>
      <publish-date value="%s">%s</publish-date>
    </publish-info>
    <document-info>
      <creation-date value="%s">%s</creation-date>
      <id>%s</id>
      <version>%s</version>
    </document-info>
  </meta-data>
  <body/>
</ACBF>
`, acbfxml.Declaration, acbfxml.NamespaceACBF11, date, date, date, date,
		encoding.EscapeXMLText(uuid.NewString()), templateVersion))
}
