package partition

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the partition type column: app partitions hold executable
// images, data partitions hold everything else.
type Type byte

const (
	// TypeApp marks a partition containing an executable image.
	TypeApp Type = 0x00
	// TypeData marks a partition containing data.
	TypeData Type = 0x01
)

// String returns the name used in the CSV type column.
func (t Type) String() string {
	switch t {
	case TypeApp:
		return "app"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(t))
	}
}

// alignment returns the offset alignment required for partitions of
// this type. App partitions must sit on 64 KB boundaries so they can be
// memory mapped; data partitions only need flash sector alignment.
func (t Type) alignment() uint32 {
	if t == TypeApp {
		return appAlignment
	}
	return dataAlignment
}

var errUnknownType = errors.New("value did not match any recognized partition type")

// ParseType parses the CSV type column.
func ParseType(s string) (Type, error) {
	switch s {
	case "app":
		return TypeApp, nil
	case "data":
		return TypeData, nil
	default:
		return 0, errUnknownType
	}
}

// SubType is the partition subtype column. The set of valid names is
// fixed and each name belongs to exactly one partition type.
type SubType byte

// App subtypes.
const (
	SubTypeFactory SubType = iota
	SubTypeOTA0
	SubTypeOTA1
	SubTypeOTA2
	SubTypeOTA3
	SubTypeOTA4
	SubTypeOTA5
	SubTypeOTA6
	SubTypeOTA7
	SubTypeOTA8
	SubTypeOTA9
	SubTypeOTA10
	SubTypeOTA11
	SubTypeOTA12
	SubTypeOTA13
	SubTypeOTA14
	SubTypeOTA15
	SubTypeTest
)

// Data subtypes.
const (
	SubTypeOTAData SubType = iota + SubTypeTest + 1
	SubTypePhy
	SubTypeNVS
	SubTypeCoredump
	SubTypeNVSKeys
	SubTypeEFuse
	SubTypeESPHTTPD
	SubTypeFAT
	SubTypeSPIFFS
)

// subTypeInfo matches a subtype to the CSV name it parses from, the
// partition type it belongs to and the value written to the binary
// table entry.
type subTypeInfo struct {
	name  string
	typ   Type
	value byte
}

var subTypes = map[SubType]subTypeInfo{
	SubTypeFactory:  {"factory", TypeApp, 0x00},
	SubTypeOTA0:     {"ota_0", TypeApp, 0x10},
	SubTypeOTA1:     {"ota_1", TypeApp, 0x11},
	SubTypeOTA2:     {"ota_2", TypeApp, 0x12},
	SubTypeOTA3:     {"ota_3", TypeApp, 0x13},
	SubTypeOTA4:     {"ota_4", TypeApp, 0x14},
	SubTypeOTA5:     {"ota_5", TypeApp, 0x15},
	SubTypeOTA6:     {"ota_6", TypeApp, 0x16},
	SubTypeOTA7:     {"ota_7", TypeApp, 0x17},
	SubTypeOTA8:     {"ota_8", TypeApp, 0x18},
	SubTypeOTA9:     {"ota_9", TypeApp, 0x19},
	SubTypeOTA10:    {"ota_10", TypeApp, 0x1A},
	SubTypeOTA11:    {"ota_11", TypeApp, 0x1B},
	SubTypeOTA12:    {"ota_12", TypeApp, 0x1C},
	SubTypeOTA13:    {"ota_13", TypeApp, 0x1D},
	SubTypeOTA14:    {"ota_14", TypeApp, 0x1E},
	SubTypeOTA15:    {"ota_15", TypeApp, 0x1F},
	SubTypeTest:     {"test", TypeApp, 0x20},
	SubTypeOTAData:  {"ota", TypeData, 0x00},
	SubTypePhy:      {"phy", TypeData, 0x01},
	SubTypeNVS:      {"nvs", TypeData, 0x02},
	SubTypeCoredump: {"coredump", TypeData, 0x03},
	SubTypeNVSKeys:  {"nvs_keys", TypeData, 0x04},
	SubTypeEFuse:    {"efuse", TypeData, 0x05},
	SubTypeESPHTTPD: {"esphttpd", TypeData, 0x80},
	SubTypeFAT:      {"fat", TypeData, 0x81},
	SubTypeSPIFFS:   {"spiffs", TypeData, 0x82},
}

// subTypeOrder fixes the order names are listed in hints.
var subTypeOrder = []SubType{
	SubTypeFactory, SubTypeOTA0, SubTypeOTA1, SubTypeOTA2, SubTypeOTA3,
	SubTypeOTA4, SubTypeOTA5, SubTypeOTA6, SubTypeOTA7, SubTypeOTA8,
	SubTypeOTA9, SubTypeOTA10, SubTypeOTA11, SubTypeOTA12, SubTypeOTA13,
	SubTypeOTA14, SubTypeOTA15, SubTypeTest,
	SubTypeOTAData, SubTypePhy, SubTypeNVS, SubTypeCoredump, SubTypeNVSKeys,
	SubTypeEFuse, SubTypeESPHTTPD, SubTypeFAT, SubTypeSPIFFS,
}

// String returns the name used in the CSV subtype column.
func (s SubType) String() string {
	info, ok := subTypes[s]
	if !ok {
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
	return info.name
}

// Type returns the partition type this subtype belongs to.
func (s SubType) Type() Type {
	return subTypes[s].typ
}

// Value returns the byte written to the binary table entry.
func (s SubType) Value() byte {
	return subTypes[s].value
}

// subTypeMismatch is the exact message ParseSubType fails with. The
// wording matters: NewCSVError inspects hint text against it to attach
// the list of recognized names.
const subTypeMismatch = "value did not match any recognized subtype"

var errUnknownSubType = errors.New(subTypeMismatch)

// ParseSubType parses the CSV subtype column. Names are unambiguous
// across partition types, so the type is not needed here; whether the
// subtype fits the row's type is checked during table validation.
func ParseSubType(s string) (SubType, error) {
	for _, st := range subTypeOrder {
		if subTypes[st].name == s {
			return st, nil
		}
	}
	return 0, errUnknownSubType
}

// SubTypeHint lists the subtype names valid for a partition type,
// comma separated, in a fixed order. It feeds diagnostic help text.
func SubTypeHint(t Type) string {
	var names []string
	for _, st := range subTypeOrder {
		if subTypes[st].typ == t {
			names = append(names, subTypes[st].name)
		}
	}
	return strings.Join(names, ", ")
}
