package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/velo/engine/core"
)

// stubAllocation keeps resource contents in host memory.
type stubAllocation struct {
	id     int
	kind   string
	bytes  []byte
	mapped bool
}

func (a *stubAllocation) Size() uint64 { return uint64(len(a.bytes)) }

func (a *stubAllocation) Mapped() []byte {
	if !a.mapped {
		return nil
	}
	return a.bytes
}

// stubAllocator records every destruction so tests can check teardown order.
type stubAllocator struct {
	next      int
	live      map[int]*stubAllocation
	events    []string
	destroyed bool
	lateFrees int
}

func newStubAllocator() *stubAllocator {
	return &stubAllocator{live: make(map[int]*stubAllocation)}
}

func (s *stubAllocator) newAllocation(kind string, size uint64) *stubAllocation {
	s.next++
	a := &stubAllocation{id: s.next, kind: kind, bytes: make([]byte, size)}
	s.live[a.id] = a
	return a
}

func (s *stubAllocator) CreateBuffer(spec BufferSpec) (vk.Buffer, Allocation, error) {
	if s.destroyed {
		return vk.NullBuffer, nil, core.Protocolf("CreateBuffer after destroy")
	}
	a := s.newAllocation("buffer", spec.Size)
	a.mapped = spec.Flags&AllocationMapped != 0
	return vk.NullBuffer, a, nil
}

func (s *stubAllocator) release(kind string, allocation Allocation) {
	a := allocation.(*stubAllocation)
	if s.destroyed {
		s.lateFrees++
	}
	if _, ok := s.live[a.id]; !ok {
		s.events = append(s.events, fmt.Sprintf("double-free:%d", a.id))
		return
	}
	delete(s.live, a.id)
	s.events = append(s.events, fmt.Sprintf("%s:%d", kind, a.id))
}

func (s *stubAllocator) DestroyBuffer(buffer vk.Buffer, allocation Allocation) {
	s.release("buffer", allocation)
}

func (s *stubAllocator) CreateImage(spec ImageSpec) (vk.Image, Allocation, error) {
	if s.destroyed {
		return vk.NullImage, nil, core.Protocolf("CreateImage after destroy")
	}
	return vk.NullImage, s.newAllocation("image", uint64(spec.Width)*uint64(spec.Height)*4), nil
}

func (s *stubAllocator) DestroyImage(image vk.Image, allocation Allocation) {
	s.release("image", allocation)
}

func (s *stubAllocator) CreateImageView(image vk.Image, spec ImageSpec) (vk.ImageView, error) {
	return vk.NullImageView, nil
}

func (s *stubAllocator) DestroyImageView(view vk.ImageView) {}

func (s *stubAllocator) Map(allocation Allocation) ([]byte, error) {
	a := allocation.(*stubAllocation)
	a.mapped = true
	return a.bytes, nil
}

func (s *stubAllocator) Unmap(allocation Allocation) {
	allocation.(*stubAllocation).mapped = false
}

func (s *stubAllocator) Destroy() {
	s.events = append(s.events, "allocator")
	s.destroyed = true
}

func (s *stubAllocator) Live() int { return len(s.live) }

func contents(r interface{ Allocation() Allocation }) []byte {
	return r.Allocation().(*stubAllocation).bytes
}

// fakeCommands records operation names and performs copies on host memory.
type fakeCommands struct {
	ops    []string
	pushed []byte
	resets int
}

func (f *fakeCommands) add(format string, args ...interface{}) {
	f.ops = append(f.ops, fmt.Sprintf(format, args...))
}

func (f *fakeCommands) Handle() vk.CommandBuffer { return nil }

func (f *fakeCommands) Reset() error {
	f.resets++
	f.ops = f.ops[:0]
	return nil
}

func (f *fakeCommands) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	f.add("begin")
	return nil
}

func (f *fakeCommands) End() error {
	f.add("end")
	return nil
}

func (f *fakeCommands) TransitionImage(image vk.Image, old, new vk.ImageLayout, aspect vk.ImageAspectFlags, mipLevels uint32) error {
	if _, err := LayoutTransition(old, new); err != nil {
		return err
	}
	f.add("transition %d->%d", old, new)
	return nil
}

func (f *fakeCommands) CopyBuffer(src, dst *Buffer, size uint64) {
	copy(contents(dst)[:size], contents(src)[:size])
	f.add("copy-buffer %d", size)
}

func (f *fakeCommands) CopyBufferToImage(src *Buffer, dst *Image) {
	copy(contents(dst), contents(src))
	f.add("copy-buffer-to-image")
}

func (f *fakeCommands) BeginRendering(target RenderTarget) {
	f.add("begin-rendering %dx%d", target.Extent.Width, target.Extent.Height)
}

func (f *fakeCommands) EndRendering() { f.add("end-rendering") }

func (f *fakeCommands) BindPipeline(pipeline vk.Pipeline) { f.add("bind-pipeline") }

func (f *fakeCommands) BindVertexBuffer(buffer *Buffer) { f.add("bind-vertex-buffer") }

func (f *fakeCommands) BindIndexBuffer(buffer *Buffer) { f.add("bind-index-buffer") }

func (f *fakeCommands) SetViewportScissor(extent vk.Extent2D) {
	f.add("viewport-scissor %dx%d", extent.Width, extent.Height)
}

func (f *fakeCommands) BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	f.add("bind-descriptor-set")
}

func (f *fakeCommands) PushConstants(layout vk.PipelineLayout, data []byte) {
	f.pushed = append([]byte(nil), data...)
	f.add("push-constants %d", len(data))
}

func (f *fakeCommands) DrawIndexed(indexCount uint32) { f.add("draw-indexed %d", indexCount) }

type fakeExecutor struct {
	runs int
	last *fakeCommands
}

func (e *fakeExecutor) Execute(record func(cmd Commands) error) error {
	e.runs++
	e.last = &fakeCommands{}
	return record(e.last)
}

type fakeCommandAllocator struct {
	allocated []*fakeCommands
	freed     int
}

func (a *fakeCommandAllocator) Allocate() (FrameCommands, error) {
	cb := &fakeCommands{}
	a.allocated = append(a.allocated, cb)
	return cb, nil
}

func (a *fakeCommandAllocator) Free(commands FrameCommands) { a.freed++ }

// newFakeHandle returns a distinct non-null semaphore backed by Go memory.
func newFakeHandle() vk.Semaphore {
	return vk.Semaphore(unsafe.Pointer(new(byte)))
}

type fakeSemaphores struct {
	created     int
	destroyed   int
	live        map[vk.Semaphore]bool
	doubleFrees int
}

func (f *fakeSemaphores) Create() (vk.Semaphore, error) {
	if f.live == nil {
		f.live = make(map[vk.Semaphore]bool)
	}
	f.created++
	semaphore := newFakeHandle()
	f.live[semaphore] = true
	return semaphore, nil
}

func (f *fakeSemaphores) Destroy(semaphore vk.Semaphore) {
	if !f.live[semaphore] {
		f.doubleFrees++
		return
	}
	delete(f.live, semaphore)
	f.destroyed++
}

// fakeTimeline plays the GPU: waiting on a submitted value completes it,
// waiting on a value nobody will signal is a deadlock.
type fakeTimeline struct {
	handle    vk.Semaphore
	completed uint64
	submitted uint64
	waits     []uint64
	signals   []uint64
	destroyed bool
}

func (t *fakeTimeline) Handle() vk.Semaphore {
	if t.handle == vk.NullSemaphore {
		t.handle = newFakeHandle()
	}
	return t.handle
}

func (t *fakeTimeline) Wait(value uint64) error {
	t.waits = append(t.waits, value)
	if value <= t.completed {
		return nil
	}
	if value > t.submitted {
		return core.Protocolf("wait for %d would deadlock (submitted %d)", value, t.submitted)
	}
	t.completed = value
	return nil
}

func (t *fakeTimeline) Signal(value uint64) error {
	if value <= t.completed || value <= t.submitted {
		return core.Protocolf("host signal %d is not monotonic (completed %d, submitted %d)", value, t.completed, t.submitted)
	}
	t.signals = append(t.signals, value)
	t.completed = value
	t.submitted = value
	return nil
}

func (t *fakeTimeline) Value() (uint64, error) { return t.completed, nil }

func (t *fakeTimeline) Destroy() { t.destroyed = true }

// drain completes everything submitted, like vkDeviceWaitIdle.
func (t *fakeTimeline) drain() { t.completed = t.submitted }

type fakeQueue struct {
	timeline       *fakeTimeline
	framesInFlight uint32
	batches        []SubmitBatch
	violations     []string
}

func (q *fakeQueue) Submit(batch SubmitBatch) error {
	if batch.TimelineValue <= q.timeline.submitted {
		q.violations = append(q.violations, fmt.Sprintf("value %d after %d", batch.TimelineValue, q.timeline.submitted))
	}
	if inFlight := batch.TimelineValue - q.timeline.completed; inFlight > uint64(q.framesInFlight) {
		q.violations = append(q.violations, fmt.Sprintf("%d frames in flight at %d", inFlight, batch.TimelineValue))
	}
	q.timeline.submitted = batch.TimelineValue
	q.batches = append(q.batches, batch)
	return nil
}

type fakePresenter struct {
	timeline       *fakeTimeline
	state          SwapchainState
	imageCount     uint32
	next           uint32
	extent         vk.Extent2D
	acquireResults []vk.Result
	presentResults []vk.Result
	presented      []uint32
	recreates      int
	resizeTo       uint32
	recreateErr    error
}

func newFakePresenter(timeline *fakeTimeline) *fakePresenter {
	return &fakePresenter{
		timeline:   timeline,
		state:      SwapchainLive,
		imageCount: 3,
		extent:     vk.Extent2D{Width: 800, Height: 600},
	}
}

func pop(results *[]vk.Result) vk.Result {
	if len(*results) == 0 {
		return vk.Success
	}
	r := (*results)[0]
	*results = (*results)[1:]
	return r
}

func (p *fakePresenter) State() SwapchainState { return p.state }

func (p *fakePresenter) Acquire(semaphore vk.Semaphore) (uint32, vk.Result) {
	result := pop(&p.acquireResults)
	if result == vk.ErrorOutOfDate {
		p.state = SwapchainStale
		return 0, result
	}
	index := p.next
	p.next = (p.next + 1) % p.imageCount
	return index, result
}

func (p *fakePresenter) Present(queue vk.Queue, waitSemaphore vk.Semaphore, imageIndex uint32) vk.Result {
	p.presented = append(p.presented, imageIndex)
	result := pop(&p.presentResults)
	if result == vk.ErrorOutOfDate {
		p.state = SwapchainStale
	}
	return result
}

func (p *fakePresenter) MarkStale() { p.state = SwapchainStale }

func (p *fakePresenter) Recreate() error {
	if p.recreateErr != nil {
		return p.recreateErr
	}
	p.timeline.drain()
	p.recreates++
	p.state = SwapchainLive
	p.next = 0
	if p.resizeTo > 0 {
		p.imageCount = p.resizeTo
	}
	return nil
}

func (p *fakePresenter) Extent() vk.Extent2D { return p.extent }

func (p *fakePresenter) ImageCount() uint32 { return p.imageCount }

func (p *fakePresenter) Target(imageIndex uint32) RenderTarget {
	return RenderTarget{
		DepthAspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Extent:      p.extent,
	}
}

type fakeResizes struct {
	pending bool
}

func (r *fakeResizes) Take() bool {
	p := r.pending
	r.pending = false
	return p
}
