package plugin

// RecordFlags is the flag word of a record header.
type RecordFlags uint32

const (
	FlagMaster                RecordFlags = 0x1
	FlagDeletedGroup          RecordFlags = 0x10
	FlagDeleted               RecordFlags = 0x20
	FlagConstant              RecordFlags = 0x40
	FlagLocalized             RecordFlags = 0x80
	FlagMustUpdateAnims       RecordFlags = 0x100
	FlagLightMaster           RecordFlags = 0x200
	FlagPersistentReference   RecordFlags = 0x400
	FlagInitiallyDisabled     RecordFlags = 0x800
	FlagIgnored               RecordFlags = 0x1000
	FlagVisibleWhenDistant    RecordFlags = 0x8000
	FlagDangerous             RecordFlags = 0x20000
	FlagCompressed            RecordFlags = 0x40000
	FlagCantWait              RecordFlags = 0x80000
	FlagIsMarker              RecordFlags = 0x100000
	FlagNoAIAcquire           RecordFlags = 0x2000000
	FlagNavMeshGenFilter      RecordFlags = 0x4000000
	FlagNavMeshGenBoundingBox RecordFlags = 0x8000000
	FlagReflectedByAutoWater  RecordFlags = 0x10000000
	FlagDontHavokSettle       RecordFlags = 0x20000000
	FlagNavMeshGenGround      RecordFlags = 0x40000000
	FlagMultiBound            RecordFlags = 0x80000000
)

// Has reports whether every bit of flag is set.
func (f RecordFlags) Has(flag RecordFlags) bool {
	return f&flag == flag
}
