package doctree

import "fmt"

// Mandatory top-level section keys, in template order.
const (
	KeyTitlePage              = "title_page"
	KeyDocumentControl        = "document_control"
	KeyTableOfContents        = "table_of_contents"
	KeyRevisionHistory        = "revision_history"
	KeyApprovalSignatures     = "approval_signatures"
	KeyDocumentClassification = "document_classification"
	KeyPurpose                = "purpose"
	KeyScope                  = "scope"
	KeyRolesResponsibilities  = "roles_and_responsibilities"
	KeyRelatedDocuments       = "related_documents"

	KeyDistributionList     = "distribution_list"
	KeyHandlingRequirements = "handling_requirements"
	KeyRetentionPeriod      = "retention_period"
)

// Profile carries the structural rules a document is validated against.
type Profile struct {
	Name                   string
	MaxLevel               int
	MandatoryKeys          []string
	ClassificationKey      string
	ClassificationChildren []string
}

// StandardProfile allows headings down to level 4.
func StandardProfile() Profile {
	return Profile{
		Name:     "standard",
		MaxLevel: 4,
		MandatoryKeys: []string{
			KeyTitlePage,
			KeyDocumentControl,
			KeyTableOfContents,
			KeyRevisionHistory,
			KeyApprovalSignatures,
			KeyDocumentClassification,
			KeyPurpose,
			KeyScope,
			KeyRolesResponsibilities,
			KeyRelatedDocuments,
		},
		ClassificationKey: KeyDocumentClassification,
		ClassificationChildren: []string{
			KeyDistributionList,
			KeyHandlingRequirements,
			KeyRetentionPeriod,
		},
	}
}

// ExtendedProfile is StandardProfile with a fifth heading level.
func ExtendedProfile() Profile {
	p := StandardProfile()
	p.Name = "extended"
	p.MaxLevel = 5
	return p
}

// ProfileByName resolves "standard" or "extended".
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", "standard":
		return StandardProfile(), nil
	case "extended":
		return ExtendedProfile(), nil
	}
	return Profile{}, fmt.Errorf("unknown profile %q", name)
}

// DefaultTitles maps mandatory keys to the headings used when a section has
// to be synthesized.
var DefaultTitles = map[string]string{
	KeyTitlePage:              "Title Page",
	KeyDocumentControl:        "Document Control",
	KeyTableOfContents:        "Table of Contents",
	KeyRevisionHistory:        "Revision History",
	KeyApprovalSignatures:     "Approval Signatures",
	KeyDocumentClassification: "Document Classification",
	KeyPurpose:                "Purpose",
	KeyScope:                  "Scope",
	KeyRolesResponsibilities:  "Roles and Responsibilities",
	KeyRelatedDocuments:       "Related Documents",
	KeyDistributionList:       "Distribution List",
	KeyHandlingRequirements:   "Handling Requirements",
	KeyRetentionPeriod:        "Retention Period",
}

// TitleFor returns the default heading for key, falling back to the key
// with underscores turned into spaces.
func TitleFor(key string) string {
	if t, ok := DefaultTitles[key]; ok {
		return t
	}
	return humanize(key)
}

// NewSkeleton returns a document holding every mandatory section of p, with
// no content. It validates as soon as meta does.
func NewSkeleton(meta Metadata, p Profile) *Document {
	doc := &Document{Metadata: meta}
	for _, key := range p.MandatoryKeys {
		sec := &Section{Key: key, Title: TitleFor(key), Level: 1}
		if key == p.ClassificationKey {
			for _, child := range p.ClassificationChildren {
				sec.Children = append(sec.Children, &Section{Key: child, Title: TitleFor(child), Level: 2})
			}
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}
