package btree

// OrderForPageSize derives the order of a tree whose nodes would each fill one
// page of pageSize bytes. A node is laid out as
//
//	ptr | key | ptr | ... | key | ptr | next
//
// so 2M keys take 2M+1 child pointers plus the leaf link and a used-size word:
// M = (pageSize - 3*ptrSize) / (2*(keySize+ptrSize)). The result is at least 1.
func OrderForPageSize(pageSize, keySize, ptrSize int) int {
	if keySize <= 0 || ptrSize <= 0 {
		panic("btree: key and pointer sizes must be positive")
	}
	m := (pageSize - 3*ptrSize) / (2 * (keySize + ptrSize))
	if m < 1 {
		return 1
	}
	return m
}
