package vcard

import (
	"strings"
)

// Contact vCard 联系人字段，空串表示缺省
type Contact struct {
	Name     string
	Email    string
	Phone    string
	Phone2   string
	Company  string
	Position string
	Website  string
	Address  string
	City     string
	State    string
	Zipcode  string
	Country  string
	UID      string
}

// Options 编码选项
type Options struct {
	// Version vCard 版本号，留空默认 3.0
	Version string
	// PhonePrefix 非空时为不带该前缀的号码补前缀
	PhonePrefix string
	// IncludeUID 是否输出 UID 属性
	IncludeUID bool
}

const defaultVersion = "3.0"

// Encode 生成 vCard 文本。
// 行尾固定 CRLF，属性值转义分号、逗号、反斜杠和换行。
// 姓名整体写入 FN 与 N 的首段，兼容安卓通讯录导入。
func Encode(contact Contact, opts Options) string {
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = defaultVersion
	}

	var b strings.Builder
	writeLine(&b, "BEGIN:VCARD")
	writeLine(&b, "VERSION:"+version)

	if contact.Name != "" {
		writeProp(&b, "FN", contact.Name)
		writeLine(&b, "N:"+escapeValue(contact.Name)+";;;;")
	}
	if contact.Company != "" {
		writeProp(&b, "ORG", contact.Company)
	}
	if contact.Position != "" {
		writeProp(&b, "TITLE", contact.Position)
	}
	if contact.Phone != "" {
		writeProp(&b, "TEL;TYPE=CELL", applyPrefix(contact.Phone, opts.PhonePrefix))
	}
	if contact.Phone2 != "" {
		writeProp(&b, "TEL;TYPE=WORK", applyPrefix(contact.Phone2, opts.PhonePrefix))
	}
	if contact.Email != "" {
		writeProp(&b, "EMAIL", contact.Email)
	}
	if contact.Website != "" {
		writeProp(&b, "URL", normalizeURL(contact.Website))
	}
	if hasAddress(contact) {
		writeLine(&b, "ADR;TYPE=WORK:;;"+escapeValue(contact.Address)+";"+
			escapeValue(contact.City)+";"+escapeValue(contact.State)+";"+
			escapeValue(contact.Zipcode)+";"+escapeValue(contact.Country))
	}
	if opts.IncludeUID && contact.UID != "" {
		writeProp(&b, "UID", contact.UID)
	}

	writeLine(&b, "END:VCARD")
	return b.String()
}

// Parse 从 vCard 文本还原联系人，仅覆盖 Encode 输出的属性。
// 容忍 LF 与 CRLF 两种行尾。
func Parse(text string) Contact {
	var contact Contact
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name, _, _ := strings.Cut(key, ";")
		switch strings.ToUpper(name) {
		case "FN":
			contact.Name = unescapeValue(value)
		case "ORG":
			contact.Company = unescapeValue(value)
		case "TITLE":
			contact.Position = unescapeValue(value)
		case "TEL":
			if strings.Contains(strings.ToUpper(key), "CELL") || contact.Phone == "" {
				contact.Phone = unescapeValue(value)
			} else {
				contact.Phone2 = unescapeValue(value)
			}
		case "EMAIL":
			contact.Email = unescapeValue(value)
		case "URL":
			contact.Website = unescapeValue(value)
		case "UID":
			contact.UID = unescapeValue(value)
		case "ADR":
			parts := splitEscaped(value)
			for len(parts) < 7 {
				parts = append(parts, "")
			}
			contact.Address = parts[2]
			contact.City = parts[3]
			contact.State = parts[4]
			contact.Zipcode = parts[5]
			contact.Country = parts[6]
		}
	}
	return contact
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

func writeProp(b *strings.Builder, key string, value string) {
	writeLine(b, key+":"+escapeValue(value))
}

func escapeValue(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
	)
	return replacer.Replace(value)
}

func unescapeValue(value string) string {
	var b strings.Builder
	escaped := false
	for _, r := range value {
		if escaped {
			switch r {
			case 'n', 'N':
				b.WriteString("\n")
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitEscaped 按未转义的分号切分属性值
func splitEscaped(value string) []string {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range value {
		if escaped {
			if r == 'n' || r == 'N' {
				current.WriteString("\n")
			} else {
				current.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case ';':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	parts = append(parts, current.String())
	return parts
}

func applyPrefix(phone string, prefix string) string {
	if prefix == "" || strings.HasPrefix(phone, prefix) {
		return phone
	}
	return prefix + phone
}

func normalizeURL(website string) string {
	if strings.HasPrefix(website, "http://") || strings.HasPrefix(website, "https://") {
		return website
	}
	return "https://" + website
}

func hasAddress(contact Contact) bool {
	return contact.Address != "" || contact.City != "" || contact.State != "" ||
		contact.Zipcode != "" || contact.Country != ""
}
