// types.go - On-disk sizes and constants of the PostgreSQL page format
package format

// Sizes and constants
const (
	DefaultBlockSize = 8192
	MinBlockSize     = 512
	MaxBlockSize     = 32768
	RelSegSize       = 131072 // blocks per 1GB segment at the default block size

	MaxAlignOf      = 8
	PageHeaderSize  = 24 // SizeOfPageHeaderData
	ItemIDSize      = 4
	ItemPointerSize = 6
	BlockIDSize     = 4

	LayoutVersion = 4 // PG_PAGE_LAYOUT_VERSION

	InvalidOffsetNumber = 0
	InvalidBlockNumber  = 0xFFFFFFFF
)

// pd_flags
const (
	PDHasFreeLines uint16 = 0x0001
	PDPageFull     uint16 = 0x0002
	PDAllVisible   uint16 = 0x0004
)

// Line pointer flags
const (
	LPUnused   = 0
	LPNormal   = 1
	LPRedirect = 2
	LPDead     = 3
)

// Special transaction ids
const (
	InvalidTransactionID   uint32 = 0
	BootstrapTransactionID uint32 = 1
	FrozenTransactionID    uint32 = 2
)

// Heap tuple header
const (
	HeapTupleHeaderSize = 23 // offsetof(HeapTupleHeaderData, t_bits)

	HeapHasNull        uint16 = 0x0001
	HeapHasVarWidth    uint16 = 0x0002
	HeapHasExternal    uint16 = 0x0004
	HeapHasOIDOld      uint16 = 0x0008
	HeapXmaxKeyShrLock uint16 = 0x0010
	HeapComboCID       uint16 = 0x0020
	HeapXmaxExclLock   uint16 = 0x0040
	HeapXmaxLockOnly   uint16 = 0x0080
	HeapXminCommitted  uint16 = 0x0100
	HeapXminInvalid    uint16 = 0x0200
	HeapXminFrozen            = HeapXminCommitted | HeapXminInvalid
	HeapXmaxCommitted  uint16 = 0x0400
	HeapXmaxInvalid    uint16 = 0x0800
	HeapXmaxIsMulti    uint16 = 0x1000
	HeapUpdated        uint16 = 0x2000
	HeapMovedOff       uint16 = 0x4000
	HeapMovedIn        uint16 = 0x8000
	HeapMoved                 = HeapMovedOff | HeapMovedIn

	HeapNattsMask   uint16 = 0x07FF
	HeapKeysUpdated uint16 = 0x2000
	HeapHotUpdated  uint16 = 0x4000
	HeapOnlyTuple   uint16 = 0x8000
)

// Index tuple header
const (
	IndexTupleHeaderSize = 8
	IndexMaxKeys         = 32

	IndexSizeMask      uint16 = 0x1FFF
	IndexAMReservedBit uint16 = 0x2000
	IndexVarMask       uint16 = 0x4000
	IndexNullMask      uint16 = 0x8000
)

// nbtree
const (
	BTreeMetaBlock  = 0
	BTreeMagic      = 0x053162
	BTreeOpaqueSize = 16
	MaxBTreeCycleID = 0xFF7F

	BTPLeaf            uint16 = 1 << 0
	BTPRoot            uint16 = 1 << 1
	BTPDeleted         uint16 = 1 << 2
	BTPMeta            uint16 = 1 << 3
	BTPHalfDead        uint16 = 1 << 4
	BTPSplitEnd        uint16 = 1 << 5
	BTPHasGarbage      uint16 = 1 << 6
	BTPIncompleteSplit uint16 = 1 << 7
	BTPHasFullXID      uint16 = 1 << 8

	BTOffsetMask       uint16 = 0x0FFF
	BTStatusOffsetMask uint16 = 0xF000
	BTPivotHeapTIDAttr uint16 = 0x1000
	BTIsPosting        uint16 = 0x2000
)

// hash
const (
	HashOpaqueSize = 16
	HashPageID     = 0xFF80

	LHOverflowPage            uint16 = 1 << 0
	LHBucketPage              uint16 = 1 << 1
	LHBitmapPage              uint16 = 1 << 2
	LHMetaPage                uint16 = 1 << 3
	LHBeingPopulated          uint16 = 1 << 4
	LHBeingSplit              uint16 = 1 << 5
	LHBucketNeedsSplitCleanup uint16 = 1 << 6
	LHPageHasDeadTuples       uint16 = 1 << 7
)

// GiST
const (
	GistOpaqueSize = 16
	GistPageID     = 0xFF81

	GistLeaf          uint16 = 1 << 0
	GistDeleted       uint16 = 1 << 1
	GistTuplesDeleted uint16 = 1 << 2
	GistFollowRight   uint16 = 1 << 3
	GistHasGarbage    uint16 = 1 << 4
)

// GIN
const (
	GinMetaBlock      = 0
	GinOpaqueSize     = 8
	GinTreePosting    = 0xFFFF
	GinItupCompressed = 1 << 31

	GinData            uint16 = 1 << 0
	GinLeaf            uint16 = 1 << 1
	GinDeleted         uint16 = 1 << 2
	GinMeta            uint16 = 1 << 3
	GinList            uint16 = 1 << 4
	GinListFullRow     uint16 = 1 << 5
	GinIncompleteSplit uint16 = 1 << 6
	GinCompressed      uint16 = 1 << 7

	PostingItemSize = BlockIDSize + ItemPointerSize
)

// SP-GiST
const (
	SpGistOpaqueSize = 8
	SpGistPageID     = 0xFF82

	SpGistMeta    uint16 = 1 << 0
	SpGistDeleted uint16 = 1 << 1
	SpGistLeaf    uint16 = 1 << 2
	SpGistNulls   uint16 = 1 << 3

	SpGistLive        = 0
	SpGistRedirect    = 1
	SpGistDead        = 2
	SpGistPlaceholder = 3

	SpGistInnerHeaderSize = 8  // SGITHDRSZ
	SpGistLeafHeaderSize  = 16 // SGLTHDRSZ
	SpGistDeadXIDOffset   = 12 // offsetof(SpGistDeadTupleData, xid)
)

// BRIN
const (
	BrinOpaqueSize = 8
	BrinMetaMagic  = 0xA8109CFA

	BrinPageTypeMeta    = 0xF091
	BrinPageTypeRevmap  = 0xF092
	BrinPageTypeRegular = 0xF093

	BrinEvacuatePage uint16 = 1 << 0

	BrinTupleHeaderSize = 5 // offsetof(BrinTuple, bt_info) + 1

	BrinOffsetMask      uint8 = 0x1F
	BrinEmptyRangeMask  uint8 = 0x20
	BrinPlaceholderMask uint8 = 0x40
	BrinNullsMask       uint8 = 0x80
)

// Sequences
const (
	SequenceMagic      = 0x1717
	SequenceOpaqueSize = 4
)
