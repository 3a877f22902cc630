package kernel

// Partition implements C8's fixed-block memory partition: a singly
// linked free list of block indices, with the links kept in a separate
// slice (next) rather than inside the blocks. CreatePartition allocates
// the blocks itself; a partition does not take a caller-supplied
// backing buffer. Get/Put are nonblocking only — there is no pend list,
// since "out of blocks" is a normal, synchronous condition here rather
// than something a task should wait on (spec.md §4.9).
type Partition struct {
	objHeader

	k *Kernel

	blockSize int
	numBlocks int
	free      int
	freeHead  uintptr // index into blocks, or noBlock

	blocks [][]byte
	next   []uintptr // free-list link per block index
}

const noBlock = ^uintptr(0)

// minBlockSize is the smallest block size CreatePartition accepts
// (spec.md §4.9's "block size >= pointer size" carried over as a fixed
// 8-byte floor). The free-list links live in Partition.next, not in
// the blocks.
const minBlockSize = 8

// CreatePartition carves numBlocks blocks of blockSize bytes each out
// of a freshly allocated backing area. blockSize must be at least
// minBlockSize, and at least two blocks are required (a one-block partition degenerates to
// a plain variable and isn't worth the bookkeeping — spec.md §4.9).
func (k *Kernel) CreatePartition(name string, blockSize, numBlocks int) (*Partition, error) {
	if !k.Config.MemPartitionsEnable {
		return nil, newErr("CreatePartition", ErrInvalidOption)
	}
	if blockSize < minBlockSize || numBlocks < 2 {
		return nil, newErr("CreatePartition", ErrInvalidOption)
	}

	p := &Partition{
		objHeader: newObjHeader(ObjPartition, name),
		k:         k,
		blockSize: blockSize,
		numBlocks: numBlocks,
		free:      numBlocks,
		blocks:    make([][]byte, numBlocks),
		next:      make([]uintptr, numBlocks),
	}
	for i := 0; i < numBlocks; i++ {
		p.blocks[i] = make([]byte, blockSize)
		if i == numBlocks-1 {
			p.next[i] = noBlock
		} else {
			p.next[i] = uintptr(i + 1)
		}
	}
	p.freeHead = 0
	k.registry.add(p)
	return p, nil
}

// Get removes and returns one block from the free list, or
// ErrNoFreeBlocks if the partition is exhausted.
func (p *Partition) Get() ([]byte, error) {
	k := p.k
	s := k.enterCS()
	defer k.exitCS(s)

	if p.deleted {
		return nil, newErr("Partition.Get", ErrObjectDeletedWhilePending)
	}
	if p.freeHead == noBlock {
		return nil, newErr("Partition.Get", ErrNoFreeBlocks)
	}

	idx := p.freeHead
	p.freeHead = p.next[idx]
	p.next[idx] = noBlock
	p.free--
	return p.blocks[idx], nil
}

// Put returns blk to the free list. blk must be a slice previously
// returned by Get on this same partition. ErrPoolFull if the partition
// is already fully free, whatever blk is; otherwise ErrInvalidOption if
// blk is not one of this partition's blocks. A double Put is only
// caught in the fully-free case.
func (p *Partition) Put(blk []byte) error {
	k := p.k
	s := k.enterCS()
	defer k.exitCS(s)

	if p.free >= p.numBlocks {
		return newErr("Partition.Put", ErrPoolFull)
	}

	idx, ok := p.indexOf(blk)
	if !ok {
		return newErr("Partition.Put", ErrInvalidOption)
	}

	p.next[idx] = p.freeHead
	p.freeHead = idx
	p.free++
	return nil
}

func (p *Partition) indexOf(blk []byte) (uintptr, bool) {
	for i, b := range p.blocks {
		if &b[0] == &blk[0] {
			return uintptr(i), true
		}
	}
	return 0, false
}

func (p *Partition) Delete() error {
	k := p.k
	s := k.enterCS()
	p.deleted = true
	k.registry.remove(p.Name)
	k.exitCS(s)
	return nil
}

// Stats reports free/used block counts alongside the usual pend-list
// accounting (always zero, since Get/Put never block).
func (p *Partition) Stats() (ObjStats, int, int) {
	k := p.k
	s := k.enterCS()
	defer k.exitCS(s)
	return k.objStats(&p.objHeader), p.free, p.numBlocks - p.free
}
