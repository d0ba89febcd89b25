package main

import "strconv"

// Command handlers. Each validates token count and session state, mutates
// the directory under the relevant mutex, replies with exactly one line,
// and — for every mutating success — emits one synced_* event to the peer
// tracker after the local mutation has committed (spec.md §4.1, §5).

func (t *Tracker) cmdCreateUser(args []string) string {
	if len(args) != 3 {
		return usage("create_user <user_id> <password>")
	}
	userID, password := args[1], args[2]

	t.dir.usersMu.Lock()
	if _, exists := t.dir.users[userID]; exists {
		t.dir.usersMu.Unlock()
		return errLine("User already exists")
	}
	u := &User{UserID: userID, Password: password}
	t.dir.users[userID] = u
	t.dir.usersMu.Unlock()

	t.store.PutUser(u)
	logf("user %s created", userID)
	t.link.Broadcast("synced_CREATE_USER " + userID + " " + password)
	return "success User created"
}

func (t *Tracker) cmdLogin(connKey, clientIP string, args []string) string {
	if len(args) != 4 {
		return usage("login <user_id> <password> <port>")
	}
	userID, password, port := args[1], args[2], args[3]

	t.dir.usersMu.RLock()
	u, ok := t.dir.users[userID]
	t.dir.usersMu.RUnlock()
	if !ok || u.Password != password {
		return errLine("Invalid credentials")
	}

	endpoint := clientIP + ":" + port

	t.dir.sessionsMu.Lock()
	_, hadSession := t.dir.sessions[userID]
	t.dir.sessions[userID] = endpoint
	t.dir.sessionsMu.Unlock()

	if hadSession {
		// Re-login from a new connection evicts the old socket binding
		// atomically — the old socket itself is left open, matching the
		// reference design's stated (and deliberately not "improved")
		// behavior; see SPEC_FULL.md / spec.md §9.
		t.dir.evictSocketsFor(userID)
	}
	t.dir.bindSocket(connKey, userID)

	logf("user %s logged in from %s", userID, endpoint)
	t.link.Broadcast("synced_LOGIN " + userID + " " + endpoint)
	return "success Login successful"
}

// doLogout performs the logout mutation shared by the explicit logout
// command and the implicit logout that runs when a control connection
// closes without one.
func (t *Tracker) doLogout(connKey, userID string) string {
	endpoint, _ := t.dir.endpointOf(userID)

	t.dir.sessionsMu.Lock()
	delete(t.dir.sessions, userID)
	t.dir.sessionsMu.Unlock()

	t.dir.unbindSocket(connKey)

	if endpoint != "" {
		t.dir.purgeEndpointFromSeeders(endpoint)
	}

	logf("user %s logged out", userID)
	t.link.Broadcast("synced_LOGOUT " + userID + " " + endpoint)
	return "success Logout successful"
}

func (t *Tracker) cmdLogout(connKey string, args []string) string {
	var userID string
	if len(args) > 1 {
		userID = args[1]
	} else {
		userID = t.dir.userForSocket(connKey)
	}
	if userID == "" {
		return errLine("Not logged in")
	}
	return t.doLogout(connKey, userID)
}

func (t *Tracker) cmdCreateGroup(connKey string, args []string) string {
	if len(args) != 2 {
		return usage("create_group <group_id>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in")
	}
	groupID := args[1]

	t.dir.groupsMu.Lock()
	if _, exists := t.dir.groups[groupID]; exists {
		t.dir.groupsMu.Unlock()
		return errLine("Group already exists.")
	}
	g := newGroup(groupID, userID)
	t.dir.groups[groupID] = g
	t.dir.groupsMu.Unlock()

	t.store.PutGroup(g)
	t.link.Broadcast("synced_CREATE_GROUP " + groupID + " " + userID)
	return "success Group created."
}

func (t *Tracker) cmdJoinGroup(connKey string, args []string) string {
	if len(args) != 2 {
		return usage("join_group <group_id>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in")
	}
	groupID := args[1]

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("Group does not exist.")
	}
	if g.Members[userID] {
		t.dir.groupsMu.Unlock()
		return errLine("You are already a member.")
	}
	g.Pending[userID] = true
	t.dir.groupsMu.Unlock()

	t.store.PutGroup(g)
	t.link.Broadcast("synced_JOIN_GROUP " + groupID + " " + userID)
	return "success Join request sent."
}

func (t *Tracker) cmdLeaveGroup(connKey string, args []string) string {
	if len(args) != 2 {
		return usage("leave_group <group_id>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in")
	}
	groupID := args[1]

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("Group does not exist.")
	}
	if g.OwnerID == userID {
		t.dir.groupsMu.Unlock()
		// spec.md §9 open question, resolved: the owner may not abandon
		// the group it owns — see SPEC_FULL.md §9.
		return errLine("owner cannot leave the group")
	}
	if !g.Members[userID] {
		t.dir.groupsMu.Unlock()
		return errLine("You are not a member of this group.")
	}
	delete(g.Members, userID)
	t.dir.groupsMu.Unlock()

	t.store.PutGroup(g)
	t.link.Broadcast("synced_LEAVE_GROUP " + groupID + " " + userID)
	return "success You have left the group."
}

func (t *Tracker) cmdListRequests(connKey string, args []string) string {
	if len(args) != 2 {
		return usage("list_requests <group_id>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in")
	}
	groupID := args[1]

	t.dir.groupsMu.RLock()
	defer t.dir.groupsMu.RUnlock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		return errLine("Group does not exist.")
	}
	if g.OwnerID != userID {
		return errLine("You are not the owner of this group.")
	}
	if len(g.Pending) == 0 {
		return "success No pending requests."
	}
	var ids []string
	for u := range g.Pending {
		ids = append(ids, u)
	}
	return "success " + joinTokens(ids)
}

func (t *Tracker) cmdAcceptRequest(connKey string, args []string) string {
	if len(args) != 3 {
		return usage("accept_request <group_id> <user_id>")
	}
	ownerID := t.dir.userForSocket(connKey)
	if ownerID == "" {
		return errLine("Not logged in")
	}
	groupID, userToAccept := args[1], args[2]

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("Group does not exist.")
	}
	if g.OwnerID != ownerID {
		t.dir.groupsMu.Unlock()
		return errLine("You are not the owner of this group.")
	}
	if !g.Pending[userToAccept] {
		t.dir.groupsMu.Unlock()
		return errLine("This user has not requested to join.")
	}
	delete(g.Pending, userToAccept)
	g.Members[userToAccept] = true
	t.dir.groupsMu.Unlock()

	t.store.PutGroup(g)
	t.link.Broadcast("synced_ACCEPT_REQUEST " + groupID + " " + userToAccept)
	return "success User added to group."
}

func (t *Tracker) cmdListGroups(args []string) string {
	t.dir.groupsMu.RLock()
	defer t.dir.groupsMu.RUnlock()
	if len(t.dir.groups) == 0 {
		return "success No groups available."
	}
	var ids []string
	for id := range t.dir.groups {
		ids = append(ids, id)
	}
	return "success " + joinTokens(ids)
}

func (t *Tracker) cmdListFiles(args []string) string {
	if len(args) != 2 {
		return usage("list_files <group_id>")
	}
	groupID := args[1]

	t.dir.groupsMu.RLock()
	defer t.dir.groupsMu.RUnlock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		return errLine("Group does not exist.")
	}
	if len(g.Files) == 0 {
		return "success No files in this group."
	}
	var names []string
	for name := range g.Files {
		names = append(names, name)
	}
	return "success " + joinTokens(names)
}

func (t *Tracker) cmdUploadFile(connKey string, args []string) string {
	if len(args) < 5 {
		return errLine("Invalid upload command format.")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("You must be logged in to upload.")
	}
	groupID, filename, sizeStr, fileHash := args[1], args[2], args[3], args[4]
	pieceHashes := append([]string{}, args[5:]...)

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return usage("upload_file <group_id> <file_path>")
	}

	endpoint, ok := t.dir.endpointOf(userID)
	if !ok || endpoint == "" {
		return errLine("Could not find your address info.")
	}

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("Group does not exist.")
	}
	if !g.Members[userID] {
		t.dir.groupsMu.Unlock()
		return errLine("You are not a member of this group.")
	}
	f := newFileInfo(filename, size, fileHash, pieceHashes, endpoint)
	g.Files[filename] = f
	t.dir.groupsMu.Unlock()

	t.store.PutFile(groupID, f)
	logf("file %s uploaded to group %s by %s", filename, groupID, userID)

	sync := "synced_UPLOAD " + groupID + " " + filename + " " + sizeStr + " " + fileHash
	for _, ph := range pieceHashes {
		sync += " " + ph
	}
	sync += " " + endpoint
	t.link.Broadcast(sync)

	return "success File uploaded successfully."
}

func (t *Tracker) cmdDownloadFile(connKey string, args []string) string {
	if len(args) != 3 {
		return usage("download_file <group_id> <file_name>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in.")
	}
	groupID, filename := args[1], args[2]

	t.dir.groupsMu.RLock()
	defer t.dir.groupsMu.RUnlock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		return errLine("Group does not exist.")
	}
	if !g.Members[userID] {
		return errLine("Not a member of this group.")
	}
	f, ok := g.Files[filename]
	if !ok {
		return errLine("File not found in this group.")
	}
	if len(f.Seeders) == 0 {
		return errLine("No seeders available for this file.")
	}

	resp := "success " + strconv.FormatInt(f.FileSize, 10) + " " + f.FileHash
	for _, ph := range f.PieceHashes {
		resp += " " + ph
	}
	for seeder := range f.Seeders {
		resp += " " + seeder
	}
	return resp
}

func (t *Tracker) cmdStopShare(connKey string, args []string) string {
	if len(args) != 3 {
		return usage("stop_share <group_id> <file_name>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in.")
	}
	groupID, filename := args[1], args[2]
	endpoint, _ := t.dir.endpointOf(userID)

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("File or group not found.")
	}
	f, ok := g.Files[filename]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("File or group not found.")
	}
	delete(f.Seeders, endpoint)
	t.dir.groupsMu.Unlock()

	t.store.PutFile(groupID, f)
	t.link.Broadcast("synced_STOP_SHARE " + groupID + " " + filename + " " + endpoint)
	return "success No longer sharing file."
}

func (t *Tracker) cmdIAmSeeder(connKey string, args []string) string {
	if len(args) != 3 {
		return usage("i_am_seeder <group_id> <file_name>")
	}
	userID := t.dir.userForSocket(connKey)
	if userID == "" {
		return errLine("Not logged in.")
	}
	groupID, filename := args[1], args[2]
	endpoint, ok := t.dir.endpointOf(userID)
	if !ok || endpoint == "" {
		return errLine("Could not find your address info.")
	}

	t.dir.groupsMu.Lock()
	g, ok := t.dir.groups[groupID]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("Group does not exist.")
	}
	f, ok := g.Files[filename]
	if !ok {
		t.dir.groupsMu.Unlock()
		return errLine("File not found in this group.")
	}
	f.Seeders[endpoint] = true
	t.dir.groupsMu.Unlock()

	t.store.PutFile(groupID, f)
	logf("%s is now a seeder for %s/%s", userID, groupID, filename)
	t.link.Broadcast("synced_ADD_SEEDER " + groupID + " " + filename + " " + endpoint)
	return "success User registered as seeder."
}
